package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Providers ProvidersConfig `envPrefix:"PROVIDERS_"`
}

type ServerConfig struct {
	Host              string        `env:"HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"PORT" envDefault:"8080"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	StatusConcurrency int           `env:"STATUS_CONCURRENCY" envDefault:"0"`
	RateLimitRPS      float64       `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst    int           `env:"RATE_LIMIT_BURST" envDefault:"20"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envDefault:"*"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// DatabaseConfig is optional. Without a URL usage records are discarded.
type DatabaseConfig struct {
	URL            string `env:"URL"`
	MaxConns       int32  `env:"MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"MIN_CONNS" envDefault:"2"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`

	ConnectAttempts int           `env:"CONNECT_ATTEMPTS" envDefault:"3"`
	ConnectBackoff  time.Duration `env:"CONNECT_BACKOFF" envDefault:"1s"`
}

// RedisConfig is optional. Without an address voice catalogs are not cached.
type RedisConfig struct {
	Addr          string        `env:"ADDR"`
	Password      string        `env:"PASSWORD"`
	DB            int           `env:"DB" envDefault:"0"`
	VoiceCacheTTL time.Duration `env:"VOICE_CACHE_TTL" envDefault:"10m"`
}

// AuthConfig enables bearer auth on /v1 when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"ISSUER"`
}

type StorageConfig struct {
	Backend     string `env:"BACKEND" envDefault:"local"`
	LocalDir    string `env:"LOCAL_DIR" envDefault:"/tmp/tts-gateway"`
	SupabaseURL string `env:"SUPABASE_URL"`
	SupabaseKey string `env:"SUPABASE_SERVICE_KEY"`
	Bucket      string `env:"BUCKET" envDefault:"tts-audio"`
}

// ProvidersConfig holds vendor credentials. A provider is registered only
// when its credentials are present.
type ProvidersConfig struct {
	Demo        bool          `env:"DEMO" envDefault:"false"`
	Stubs       bool          `env:"STUBS" envDefault:"true"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"20s"`

	OpenAI     OpenAIConfig     `envPrefix:"OPENAI_"`
	Polly      PollyConfig      `envPrefix:"POLLY_"`
	Google     GoogleConfig     `envPrefix:"GOOGLE_"`
	Azure      AzureConfig      `envPrefix:"AZURE_"`
	Watson     WatsonConfig     `envPrefix:"WATSON_"`
	ElevenLabs ElevenLabsConfig `envPrefix:"ELEVENLABS_"`
	Voicevox   VoicevoxConfig   `envPrefix:"VOICEVOX_"`
	Piper      PiperConfig      `envPrefix:"PIPER_"`
}

type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL"`
	Model   string `env:"MODEL" envDefault:"tts-1"`
}

type PollyConfig struct {
	Enabled         bool   `env:"ENABLED" envDefault:"false"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type GoogleConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL" envDefault:"https://texttospeech.googleapis.com"`
}

type AzureConfig struct {
	Key    string `env:"KEY"`
	Region string `env:"REGION"`
}

type WatsonConfig struct {
	APIKey string `env:"API_KEY"`
	URL    string `env:"URL"`
}

type ElevenLabsConfig struct {
	APIKey  string `env:"API_KEY"`
	BaseURL string `env:"BASE_URL" envDefault:"https://api.elevenlabs.io"`
	Model   string `env:"MODEL" envDefault:"eleven_multilingual_v2"`
}

type VoicevoxConfig struct {
	URL string `env:"URL"`
}

type PiperConfig struct {
	BinPath string `env:"BIN" envDefault:"piper"`
	Model   string `env:"MODEL"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}
	switch c.Storage.Backend {
	case "local":
	case "supabase":
		if c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "" {
			problems = append(problems, "STORAGE_SUPABASE_URL and STORAGE_SUPABASE_SERVICE_KEY are required for supabase storage")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_BACKEND must be local or supabase, got %q", c.Storage.Backend))
	}
	if c.Providers.Azure.Key != "" && c.Providers.Azure.Region == "" {
		problems = append(problems, "PROVIDERS_AZURE_REGION is required with PROVIDERS_AZURE_KEY")
	}
	if c.Providers.Watson.APIKey != "" && c.Providers.Watson.URL == "" {
		problems = append(problems, "PROVIDERS_WATSON_URL is required with PROVIDERS_WATSON_API_KEY")
	}
	if c.Server.StatusConcurrency < 0 {
		problems = append(problems, "SERVER_STATUS_CONCURRENCY must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
