package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Ingest         IngestConfig         `mapstructure:"ingest"`
	Export         ExportConfig         `mapstructure:"export"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig configures the PostgreSQL pool backing the item catalog and the behavior
// table. An empty URL disables PostgreSQL.
type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig configures the item feature cache. An empty URL disables caching.
type RedisConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		Profiles string `mapstructure:"profiles"`
	} `mapstructure:"topics"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AuthConfig configures bearer token checks on the API. An empty secret disables them.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IngestConfig selects where behavior records are loaded from.
type IngestConfig struct {
	Source string `mapstructure:"source"` // file or postgres
	Path   string `mapstructure:"path"`
	Format string `mapstructure:"format"` // json, jsonl or empty to infer from the extension
	Table  string `mapstructure:"table"`
}

type ExportConfig struct {
	Sinks     []string `mapstructure:"sinks"` // kafka, neo4j
	NeighborK int      `mapstructure:"neighbor_k"`
}

type RecommendationConfig struct {
	Similarity      SimilarityConfig `mapstructure:"similarity"`
	Neighbors       NeighborConfig   `mapstructure:"neighbors"`
	Ranking         RankingConfig    `mapstructure:"ranking"`
	FeatureCacheTTL time.Duration    `mapstructure:"feature_cache_ttl"`
}

// SimilarityConfig weights the combined similarity. The weights should sum to 1 for the
// combined score to stay within [0,1].
type SimilarityConfig struct {
	SetOverlap      float64 `mapstructure:"set_overlap"`
	WeightedVector  float64 `mapstructure:"weighted_vector"`
	BehaviorPattern float64 `mapstructure:"behavior_pattern"`
}

type NeighborConfig struct {
	K              int `mapstructure:"k"`
	MinCommonItems int `mapstructure:"min_common_items"`
	Workers        int `mapstructure:"workers"`
}

type RankingConfig struct {
	Collaborative float64              `mapstructure:"collaborative"`
	Feature       float64              `mapstructure:"feature"`
	Features      FeatureWeightsConfig `mapstructure:"features"`
	Workers       int                  `mapstructure:"workers"`
}

type FeatureWeightsConfig struct {
	Category   float64 `mapstructure:"category"`
	Brand      float64 `mapstructure:"brand"`
	Price      float64 `mapstructure:"price"`
	Quality    float64 `mapstructure:"quality"`
	Popularity float64 `mapstructure:"popularity"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks value ranges that viper cannot express.
func (c *Config) Validate() error {
	rec := c.Recommendation

	if rec.Neighbors.K < 1 {
		return fmt.Errorf("recommendation.neighbors.k must be positive, got %d", rec.Neighbors.K)
	}
	if rec.Neighbors.MinCommonItems < 0 {
		return fmt.Errorf("recommendation.neighbors.min_common_items must not be negative, got %d", rec.Neighbors.MinCommonItems)
	}

	weights := map[string]float64{
		"similarity.set_overlap":      rec.Similarity.SetOverlap,
		"similarity.weighted_vector":  rec.Similarity.WeightedVector,
		"similarity.behavior_pattern": rec.Similarity.BehaviorPattern,
		"ranking.collaborative":       rec.Ranking.Collaborative,
		"ranking.feature":             rec.Ranking.Feature,
		"ranking.features.category":   rec.Ranking.Features.Category,
		"ranking.features.brand":      rec.Ranking.Features.Brand,
		"ranking.features.price":      rec.Ranking.Features.Price,
		"ranking.features.quality":    rec.Ranking.Features.Quality,
		"ranking.features.popularity": rec.Ranking.Features.Popularity,
	}
	for name, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("recommendation.%s must be a non-negative number, got %v", name, w)
		}
	}

	switch c.Ingest.Source {
	case "file":
		if c.Ingest.Path == "" {
			return fmt.Errorf("ingest.path is required for the file source")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres source")
		}
	case "":
	default:
		return fmt.Errorf("unknown ingest.source %q", c.Ingest.Source)
	}

	for _, sink := range c.Export.Sinks {
		switch sink {
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers is required for the kafka export sink")
			}
		case "neo4j":
			if c.Neo4j.URL == "" {
				return fmt.Errorf("neo4j.url is required for the neo4j export sink")
			}
		default:
			return fmt.Errorf("unknown export sink %q", sink)
		}
	}

	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Neo4j defaults
	viper.SetDefault("neo4j.url", "")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("neo4j.password", "")
	viper.SetDefault("neo4j.database", "neo4j")

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{})
	viper.SetDefault("kafka.topics.profiles", "collaborative-profiles")
	viper.SetDefault("kafka.write_timeout", "10s")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.issuer", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Ingest defaults
	viper.SetDefault("ingest.source", "file")
	viper.SetDefault("ingest.path", "./data/behaviors.jsonl")
	viper.SetDefault("ingest.format", "")
	viper.SetDefault("ingest.table", "user_behaviors")

	// Export defaults
	viper.SetDefault("export.sinks", []string{})
	viper.SetDefault("export.neighbor_k", 10)

	// Recommendation defaults
	viper.SetDefault("recommendation.similarity.set_overlap", 0.3)
	viper.SetDefault("recommendation.similarity.weighted_vector", 0.4)
	viper.SetDefault("recommendation.similarity.behavior_pattern", 0.3)
	viper.SetDefault("recommendation.neighbors.k", 10)
	viper.SetDefault("recommendation.neighbors.min_common_items", 3)
	viper.SetDefault("recommendation.neighbors.workers", 0)
	viper.SetDefault("recommendation.ranking.collaborative", 0.6)
	viper.SetDefault("recommendation.ranking.feature", 0.4)
	viper.SetDefault("recommendation.ranking.features.category", 0.3)
	viper.SetDefault("recommendation.ranking.features.brand", 0.2)
	viper.SetDefault("recommendation.ranking.features.price", 0.2)
	viper.SetDefault("recommendation.ranking.features.quality", 0.2)
	viper.SetDefault("recommendation.ranking.features.popularity", 0.1)
	viper.SetDefault("recommendation.ranking.workers", 0)
	viper.SetDefault("recommendation.feature_cache_ttl", "1h")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
