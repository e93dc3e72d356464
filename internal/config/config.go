package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database  *dbConfig
	Service   *svcConfig
	Artifacts *artifactsConfig
	Jobs      *jobsConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"sdg11"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"SDG11_ADDRESS" default:":3443"`
	MetricsAddress  string `envconfig:"SDG11_METRICS_ADDRESS" default:":8080"`
	BaseUrl         string `envconfig:"SDG11_BASE_URL" default:"https://localhost:3443"`
	LogLevel        string `envconfig:"SDG11_LOG_LEVEL" default:"info"`
	OverpassUrl     string `envconfig:"SDG11_OVERPASS_URL" default:"https://overpass-api.de/api/interpreter"`
	MigrationFolder string `envconfig:"SDG11_MIGRATIONS_FOLDER" default:"deploy/migrations"`
	Kafka           kafkaConfig
}

type artifactsConfig struct {
	Endpoint  string `envconfig:"SDG11_ARTIFACTS_ENDPOINT" default:"localhost:9000"`
	Bucket    string `envconfig:"SDG11_ARTIFACTS_BUCKET" default:"sdg11-artifacts"`
	AccessKey string `envconfig:"SDG11_ARTIFACTS_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"SDG11_ARTIFACTS_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"SDG11_ARTIFACTS_USE_SSL" default:"false"`
}

type jobsConfig struct {
	MaxWorkers     int           `envconfig:"SDG11_JOBS_MAX_WORKERS" default:"4"`
	Timeout        time.Duration `envconfig:"SDG11_JOBS_TIMEOUT" default:"10m"`
	MaxAttempts    int           `envconfig:"SDG11_JOBS_MAX_ATTEMPTS" default:"3"`
	RetentionTTL   time.Duration `envconfig:"SDG11_JOBS_RETENTION_TTL" default:"24h"`
	SweepInterval  time.Duration `envconfig:"SDG11_JOBS_SWEEP_INTERVAL" default:"1h"`
	BufferDistance float64       `envconfig:"SDG11_JOBS_BUFFER_DISTANCE" default:"5000"`
}

type kafkaConfig struct {
	Brokers     []string `envconfig:"SDG11_KAFKA_BROKERS" default:""`
	Topic       string   `envconfig:"SDG11_KAFKA_TOPIC" default:""`
	ClientID    string   `envconfig:"SDG11_KAFKA_CLIENT_ID" default:""`
	EventSource string   `envconfig:"SDG11_KAFKA_EVENT_SOURCE" default:""`
}

// NewDefault returns a configuration with default values only, backed by an
// in-memory sqlite database. Used by tests.
func NewDefault() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("sdg11_default", cfg); err != nil {
		return nil, err
	}
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = ":memory:"
	return cfg, nil
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}
