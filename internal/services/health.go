package services

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/database"
)

const healthCheckTimeout = 5 * time.Second

type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]string      `json:"services"`
	Critical    []string               `json:"critical_failures,omitempty"`
	NonCritical []string               `json:"non_critical_failures,omitempty"`
	Latency     time.Duration          `json:"latency,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

type dependencyCheck struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

// HealthService reports the state of the configured stores and of the loaded interaction model.
type HealthService struct {
	recommender *Recommender
	checks      []dependencyCheck
	logger      *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

// NewHealthService checks only the stores present in db. PostgreSQL is critical because the
// catalog lookup depends on it; Redis and Neo4j only degrade caching and export.
func NewHealthService(db *database.Database, recommender *Recommender, reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	var checks []dependencyCheck
	if db != nil {
		if db.PG != nil {
			checks = append(checks, dependencyCheck{name: "postgresql", critical: true, check: db.PG.Ping})
		}
		if db.Redis != nil {
			checks = append(checks, dependencyCheck{name: "redis", check: func(ctx context.Context) error {
				return db.Redis.Ping(ctx).Err()
			}})
		}
		if db.Neo4j != nil {
			checks = append(checks, dependencyCheck{name: "neo4j", check: db.Neo4j.VerifyConnectivity})
		}
	}
	return newHealthService(recommender, checks, reg, logger)
}

func newHealthService(recommender *Recommender, checks []dependencyCheck, reg prometheus.Registerer, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		recommender: recommender,
		checks:      checks,
		logger:      logger,
		healthCheckStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_status",
			Help: "Health check status (1 = healthy, 0 = unhealthy)",
		}, []string{"service"}),
		lastHealthCheck: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "health_check_timestamp",
			Help: "Timestamp of last health check",
		}, []string{"service"}),
	}

	hs.healthCheckStatus = register(reg, hs.healthCheckStatus, logger)
	hs.lastHealthCheck = register(reg, hs.lastHealthCheck, logger)

	return hs
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	started := time.Now()
	status := &HealthStatus{
		Timestamp: started,
		Services:  make(map[string]string),
	}

	allCriticalHealthy := true
	for _, dep := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := dep.check(checkCtx)
		cancel()

		if err != nil {
			status.Services[dep.name] = "unhealthy"
			if dep.critical {
				allCriticalHealthy = false
				status.Critical = append(status.Critical, dep.name)
				s.logger.WithError(err).Errorf("Critical service %s is unhealthy", dep.name)
			} else {
				status.NonCritical = append(status.NonCritical, dep.name)
				s.logger.WithError(err).Warnf("Non-critical service %s is unhealthy", dep.name)
			}
			s.UpdateHealthMetrics(dep.name, false)
			continue
		}

		status.Services[dep.name] = "healthy"
		s.UpdateHealthMetrics(dep.name, true)
	}

	switch {
	case !allCriticalHealthy:
		status.Status = "unhealthy"
	case len(status.NonCritical) > 0:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}

	if s.recommender != nil {
		status.Details = map[string]interface{}{
			"model": s.recommender.Stats(),
		}
	}
	status.Latency = time.Since(started)

	return status
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
