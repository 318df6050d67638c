package handlers

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/affinity/internal/services"
	"github.com/temcen/affinity/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) Rank(ctx context.Context, req *models.RankingRequest) (*models.RankingResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.RankingResult)
	return result, args.Error(1)
}

func (m *MockRecommender) RankBatch(ctx context.Context, reqs []models.RankingRequest) []models.BatchRankingEntry {
	args := m.Called(ctx, reqs)
	return args.Get(0).([]models.BatchRankingEntry)
}

func (m *MockRecommender) Neighbors(ctx context.Context, userID string, k, minCommonItems int) ([]models.Neighbor, error) {
	args := m.Called(ctx, userID, k, minCommonItems)
	neighbors, _ := args.Get(0).([]models.Neighbor)
	return neighbors, args.Error(1)
}

func (m *MockRecommender) Profile(ctx context.Context, userID string, k int) (*models.CollaborativeProfile, error) {
	args := m.Called(ctx, userID, k)
	profile, _ := args.Get(0).(*models.CollaborativeProfile)
	return profile, args.Error(1)
}

func (m *MockRecommender) Summarize(ctx context.Context, userID string) (*models.PreferenceSummary, error) {
	args := m.Called(ctx, userID)
	summary, _ := args.Get(0).(*models.PreferenceSummary)
	return summary, args.Error(1)
}

type MockLoader struct {
	mock.Mock
}

func (m *MockLoader) Load(ctx context.Context) (*services.LoadReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*services.LoadReport)
	return report, args.Error(1)
}

type MockExporter struct {
	mock.Mock
}

func (m *MockExporter) Export(ctx context.Context) (*services.ExportReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*services.ExportReport)
	return report, args.Error(1)
}

type MockHealth struct {
	mock.Mock
}

func (m *MockHealth) CheckHealth(ctx context.Context) *services.HealthStatus {
	args := m.Called(ctx)
	return args.Get(0).(*services.HealthStatus)
}

type MockModelStats struct {
	mock.Mock
}

func (m *MockModelStats) Stats() services.ModelStats {
	args := m.Called()
	return args.Get(0).(services.ModelStats)
}
