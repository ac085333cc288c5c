package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"voice-journal/internal/domain"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Groq          GroqConfig          `yaml:"groq"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	Anthropic     AnthropicConfig     `yaml:"anthropic"`
	Cleaner       CleanerConfig       `yaml:"cleaner"`
	Timeouts      TimeoutConfig       `yaml:"timeouts"`
	FFmpeg        FFmpegConfig        `yaml:"ffmpeg"`
	Database      DatabaseConfig      `yaml:"database"`
	Supabase      SupabaseConfig      `yaml:"supabase"`
	Stripe        StripeConfig        `yaml:"stripe"`
	Pushover      PushoverConfig      `yaml:"pushover"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Log           LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Addr               string        `yaml:"addr"`
	CORSOrigins        []string      `yaml:"cors_origins"`
	MaxUploadMB        int           `yaml:"max_upload_mb"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
}

func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

type GroqConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	WhisperModel string `yaml:"whisper_model"`
	TagModel     string `yaml:"tag_model"`
	Language     string `yaml:"language"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type CleanerConfig struct {
	// Provider is gemini or anthropic.
	Provider string `yaml:"provider"`
}

type TimeoutConfig struct {
	Transcribe time.Duration `yaml:"transcribe"`
	Clean      time.Duration `yaml:"clean"`
	Tags       time.Duration `yaml:"tags"`
}

type FFmpegConfig struct {
	Path    string `yaml:"path"`
	Enabled *bool  `yaml:"enabled"`
}

func (f FFmpegConfig) IsEnabled() bool {
	return f.Enabled == nil || *f.Enabled
}

type DatabaseConfig struct {
	// URL is a Postgres DSN; empty selects the in-memory store.
	URL string `yaml:"url"`
}

type SupabaseConfig struct {
	URL            string `yaml:"url"`
	JWTSecret      string `yaml:"jwt_secret"`
	ServiceRoleKey string `yaml:"service_role_key"`
}

type StripeConfig struct {
	SecretKey       string      `yaml:"secret_key"`
	WebhookSecret   string      `yaml:"webhook_secret"`
	Prices          PriceConfig `yaml:"prices"`
	SuccessURL      string      `yaml:"success_url"`
	CancelURL       string      `yaml:"cancel_url"`
	PortalReturnURL string      `yaml:"portal_return_url"`
}

func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

type PriceConfig struct {
	Apprentice string `yaml:"apprentice"`
	Pro        string `yaml:"pro"`
	Sovereign  string `yaml:"sovereign"`
}

func (p PriceConfig) ByTier() map[domain.Tier]string {
	return map[domain.Tier]string{
		domain.TierApprentice: p.Apprentice,
		domain.TierPro:        p.Pro,
		domain.TierSovereign:  p.Sovereign,
	}
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

// HomeAssistantConfig routes operator alerts to a notify service.
type HomeAssistantConfig struct {
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	NotifyService string `yaml:"notify_service"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env (if present) into the environment, then the YAML file
// with ${VAR} references expanded. A missing YAML file yields defaults so
// the server can run from environment variables alone.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte(defaultYAML)
	} else if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3001"
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 50
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = 30
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 2 * time.Minute
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 2 * time.Minute
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Groq.WhisperModel == "" {
		c.Groq.WhisperModel = "whisper-large-v3-turbo"
	}
	if c.Groq.TagModel == "" {
		c.Groq.TagModel = "llama-3.1-8b-instant"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Anthropic.Model == "" {
		c.Anthropic.Model = "claude-3-5-haiku-latest"
	}
	c.Cleaner.Provider = strings.ToLower(strings.TrimSpace(c.Cleaner.Provider))
	if c.Cleaner.Provider == "" {
		c.Cleaner.Provider = "gemini"
	}
	if c.Timeouts.Transcribe == 0 {
		c.Timeouts.Transcribe = 60 * time.Second
	}
	if c.Timeouts.Clean == 0 {
		c.Timeouts.Clean = 15 * time.Second
	}
	if c.Timeouts.Tags == 0 {
		c.Timeouts.Tags = 10 * time.Second
	}
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = "ffmpeg"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	switch c.Cleaner.Provider {
	case "gemini", "anthropic":
	default:
		return fmt.Errorf("cleaner.provider must be gemini or anthropic, got %q", c.Cleaner.Provider)
	}
	if c.Server.MaxUploadMB < 0 || c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server limits must not be negative")
	}
	if c.Stripe.Enabled() && c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("stripe.webhook_secret is required when stripe.secret_key is set")
	}
	return nil
}

const defaultYAML = `
groq:
  api_key: ${GROQ_API_KEY}
gemini:
  api_key: ${GEMINI_API_KEY}
anthropic:
  api_key: ${ANTHROPIC_API_KEY}
database:
  url: ${DATABASE_URL}
supabase:
  url: ${SUPABASE_URL}
  jwt_secret: ${SUPABASE_JWT_SECRET}
  service_role_key: ${SUPABASE_SERVICE_ROLE_KEY}
stripe:
  secret_key: ${STRIPE_SECRET_KEY}
  webhook_secret: ${STRIPE_WEBHOOK_SECRET}
  prices:
    apprentice: ${STRIPE_PRICE_APPRENTICE}
    pro: ${STRIPE_PRICE_PRO}
    sovereign: ${STRIPE_PRICE_SOVEREIGN}
  success_url: ${APP_URL}/settings?checkout=success
  cancel_url: ${APP_URL}/settings?checkout=cancel
  portal_return_url: ${APP_URL}/settings
pushover:
  token: ${PUSHOVER_TOKEN}
  user_key: ${PUSHOVER_USER_KEY}
homeassistant:
  url: ${HOMEASSISTANT_URL}
  token: ${HOMEASSISTANT_TOKEN}
  notify_service: ${HOMEASSISTANT_NOTIFY_SERVICE}
log:
  level: ${LOG_LEVEL}
  format: ${LOG_FORMAT}
`
