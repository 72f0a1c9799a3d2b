package internal

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"captioner/internal/captions"
	"captioner/internal/gemini"
	"captioner/internal/vision"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	AuthConfig struct {
		Enabled      bool   `yaml:"enabled" env:"AUTH_ENABLED"`
		ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
		ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
		CallbackURL  string `yaml:"callback_url" env:"GOOGLE_CALLBACK_URL" env-default:"http://localhost:5001/auth/google/callback"`
	}

	PipelineConfig struct {
		Source      string        `yaml:"source" env:"CAPTION_SOURCE" env-default:"labels"`
		CallTimeout time.Duration `yaml:"call_timeout" env:"CAPTION_CALL_TIMEOUT" env-default:"30s"`
	}

	PostgresConfig struct {
		ConnectionUrl string `yaml:"connection_url" env:"DATABASE_URL"`
	}

	KafkaConfig struct {
		Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
		Group        string   `yaml:"group" env-default:"caption-indexer"`
		CaptionTopic string   `yaml:"caption_topic" env-default:"captions"`
	}

	AppConfig struct {
		Port               string               `yaml:"port" env:"PORT" env-default:"5001"`
		TemplateGLOB       string               `yaml:"template_glob" env-default:"templates/*.html"`
		ClientOrigin       string               `yaml:"client_origin" env:"CLIENT_ORIGIN" env-default:"http://localhost:3000"`
		CookieSecret       string               `yaml:"cookie_secret" env:"SESSION_SECRET"`
		MaxUploadSize      int64                `yaml:"max_upload_size" env-default:"10485760"`
		Auth               AuthConfig           `yaml:"auth"`
		Vision             vision.Config        `yaml:"vision"`
		Gemini             gemini.Config        `yaml:"gemini"`
		Pipeline           PipelineConfig       `yaml:"pipeline"`
		Postgres           PostgresConfig       `yaml:"postgres"`
		Elasticsearch      elasticsearch.Config `yaml:"elasticsearch"`
		ElasticsearchIndex string               `yaml:"elasticsearch_index" env-default:"captions"`
		Kafka              KafkaConfig          `yaml:"kafka"`
		PollPeriod         time.Duration        `yaml:"poll_period" env-default:"1m"`
	}
)

// ReadConfig loads the file named by the -config flag. Callers register their
// own flags before calling it.
func ReadConfig() (*AppConfig, error) {
	configPath := flag.String("config", "config.yaml", "Path to config")

	flag.Parse()

	return LoadConfig(*configPath)
}

func LoadConfig(path string) (*AppConfig, error) {
	var cfg AppConfig

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}

	return &cfg, cfg.Validate()
}

func (c *AppConfig) Validate() error {
	var errs []error

	if !captions.Source(c.Pipeline.Source).Valid() {
		errs = append(errs, fmt.Errorf("pipeline.source: unknown source %q", c.Pipeline.Source))
	}
	if c.Pipeline.CallTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.call_timeout must be positive"))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("max_upload_size must be positive"))
	}

	if c.Auth.Enabled {
		if c.Auth.ClientID == "" || c.Auth.ClientSecret == "" {
			errs = append(errs, errors.New("auth: client_id and client_secret are required"))
		}
		if len(c.CookieSecret) < 32 {
			errs = append(errs, errors.New("cookie_secret must be at least 32 bytes when auth is enabled"))
		}
		if c.Postgres.ConnectionUrl == "" {
			errs = append(errs, errors.New("auth needs postgres.connection_url to store users"))
		}
	}

	return errors.Join(errs...)
}

func (c *AppConfig) ElasticsearchEnabled() bool {
	return len(c.Elasticsearch.Addresses) > 0 || c.Elasticsearch.CloudID != ""
}

func (c *AppConfig) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
