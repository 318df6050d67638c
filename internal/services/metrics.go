package services

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Metrics holds the Prometheus collectors for the recommendation core. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	rankingRequests  *prometheus.CounterVec
	rankingLatency   prometheus.Histogram
	featureFailures  prometheus.Counter
	neighborsPerUser prometheus.Histogram
	modelSize        *prometheus.GaugeVec
	modelReloads     *prometheus.CounterVec
	exportedProfiles *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, logger *logrus.Logger) *Metrics {
	m := &Metrics{
		rankingRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affinity_ranking_requests_total",
			Help: "Ranking requests by outcome",
		}, []string{"outcome"}),
		rankingLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "affinity_ranking_duration_seconds",
			Help:    "Time spent ranking a candidate set",
			Buckets: prometheus.DefBuckets,
		}),
		featureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "affinity_feature_lookup_failures_total",
			Help: "Item feature lookups that failed during ranking",
		}),
		neighborsPerUser: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "affinity_profile_neighbors",
			Help:    "Neighbors selected per collaborative profile",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		modelSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "affinity_model_size",
			Help: "Size of the active interaction model",
		}, []string{"dimension"}),
		modelReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affinity_model_reloads_total",
			Help: "Interaction model reloads by outcome",
		}, []string{"outcome"}),
		exportedProfiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affinity_exported_profiles_total",
			Help: "Profiles handed to export sinks by sink and outcome",
		}, []string{"sink", "outcome"}),
	}

	m.rankingRequests = register(reg, m.rankingRequests, logger)
	m.rankingLatency = register(reg, m.rankingLatency, logger)
	m.featureFailures = register(reg, m.featureFailures, logger)
	m.neighborsPerUser = register(reg, m.neighborsPerUser, logger)
	m.modelSize = register(reg, m.modelSize, logger)
	m.modelReloads = register(reg, m.modelReloads, logger)
	m.exportedProfiles = register(reg, m.exportedProfiles, logger)

	return m
}

// register adds c to reg, reusing the existing collector when an equal one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, logger *logrus.Logger) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register metric")
	}
	return c
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) ObserveRanking(started time.Time, err error) {
	if m == nil {
		return
	}
	m.rankingRequests.WithLabelValues(outcomeLabel(err)).Inc()
	m.rankingLatency.Observe(time.Since(started).Seconds())
}

func (m *Metrics) FeatureLookupFailed() {
	if m == nil {
		return
	}
	m.featureFailures.Inc()
}

func (m *Metrics) ObserveNeighbors(n int) {
	if m == nil {
		return
	}
	m.neighborsPerUser.Observe(float64(n))
}

func (m *Metrics) ModelLoaded(model *InteractionModel, err error) {
	if m == nil {
		return
	}
	m.modelReloads.WithLabelValues(outcomeLabel(err)).Inc()
	if err != nil || model == nil {
		return
	}
	m.modelSize.WithLabelValues("users").Set(float64(model.UserCount()))
	m.modelSize.WithLabelValues("items").Set(float64(model.ItemCount()))
	m.modelSize.WithLabelValues("records").Set(float64(model.RecordCount()))
}

func (m *Metrics) ProfileExported(sink string, err error) {
	if m == nil {
		return
	}
	m.exportedProfiles.WithLabelValues(sink, outcomeLabel(err)).Inc()
}
