// Package config provides configuration management for the wxrelay webhook
// relay. Configuration is read once at startup, validated, and treated as
// immutable for the process lifetime; components receive it explicitly
// rather than reading ambient global state.
//
// Two sources are supported: a YAML file with environment variable
// expansion, and the plain environment variables the original deployment
// used (OPENAI_API_KEY, WEBHOOK_SECRET, ...). FromEnv is the fallback when
// no config file is present.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the complete relay configuration. It combines server
// settings, completion provider settings, webhook verification, response
// limits, and logging preferences into a single structure.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Limits     LimitsConfig     `yaml:"limits"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
// It defines timeouts, limits, and operational parameters.
type ServerConfig struct {
	// Host is the bind address (default: 0.0.0.0)
	Host string `yaml:"host"`

	// Port specifies the HTTP server port (default: 3000)
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must cover the outbound completion call (default: 45s)
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" validate:"gte=0"`

	// ShutdownTimeout specifies how long to wait for the server to shutdown
	// gracefully before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// CompletionConfig holds the settings for the outbound chat-completion call.
type CompletionConfig struct {
	// APIKey authenticates against the completion provider. When empty the
	// client runs in echo mode: it returns the prompt instead of answering.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent to the provider (default: gpt-4o-mini)
	Model string `yaml:"model" validate:"required"`

	// Endpoint is the chat-completions URL
	Endpoint string `yaml:"endpoint" validate:"required,url"`

	// SystemPrompt is the fixed system-role message sent with every request
	SystemPrompt string `yaml:"system_prompt"`

	// Temperature is the fixed sampling temperature (default: 0.3)
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`

	// Timeout bounds the outbound request (default: 30s)
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// WebhookConfig holds inbound signature verification settings.
type WebhookConfig struct {
	// Secret is the shared HMAC secret. Empty disables verification,
	// which is intended only for development.
	Secret string `yaml:"secret"`

	// SignatureHeader is the header carrying the hex HMAC-SHA256 digest
	// (default: X-Signature)
	SignatureHeader string `yaml:"signature_header"`
}

// LimitsConfig caps the strings the relay produces. Both are prefix cuts,
// applied before a value leaves its producing component.
type LimitsConfig struct {
	// MaxQueryLen caps the extracted user query (default: 2000)
	MaxQueryLen int `yaml:"max_query_len" validate:"gt=0"`

	// MaxReplyLen caps the completion answer (default: 1500)
	MaxReplyLen int `yaml:"max_reply_len" validate:"gt=0"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Format specifies log output format: json or text
	Format string `yaml:"format" validate:"oneof=json text"`
}

// DefaultConfig returns the configuration the relay runs with when nothing
// is overridden. The defaults mirror the platform deployment: port 3000,
// 2000/1500 character caps, 30 second upstream timeout.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    45 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Completion: CompletionConfig{
			Model:        "gpt-4o-mini",
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			SystemPrompt: "You are a concise assistant. Reply in the user's language.",
			Temperature:  0.3,
			Timeout:      30 * time.Second,
		},
		Webhook: WebhookConfig{
			SignatureHeader: "X-Signature",
		},
		Limits: LimitsConfig{
			MaxQueryLen: 2000,
			MaxReplyLen: 1500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves environment variable references within
// configuration strings. It supports standard ${VAR} substitution and the
// ${VAR:-default} syntax for default values, so secrets like the API key
// can stay out of the YAML file.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			envKey := key[:i]
			defaultValue := key[i+2:]
			if val := os.Getenv(envKey); val != "" {
				return val
			}
			return defaultValue
		}
		return os.Getenv(key)
	})
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	// Read all bytes to expand environment variables
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Start with defaults
	config := DefaultConfig()

	// Decode YAML on top of defaults
	dec := yaml.NewDecoder(strings.NewReader(expandEnvVars(string(data))))
	if err := dec.Decode(config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// FromEnv builds a configuration from environment variables alone, matching
// the variable names the original deployment used. Unset variables keep
// their defaults.
//
//	OPENAI_API_KEY    completion provider credential
//	OPENAI_MODEL      completion model identifier
//	OPENAI_ENDPOINT   chat-completions URL
//	WEBHOOK_SECRET    shared HMAC secret (empty disables verification)
//	MAX_REPLY_LEN     maximum reply length
//	MAX_QUERY_LEN     maximum extracted query length
//	REQUEST_TIMEOUT   outbound timeout in seconds
//	HOST, PORT        bind address
//	LOG_LEVEL         debug, info, warn, error
func FromEnv() (*Config, error) {
	config := DefaultConfig()

	config.Completion.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		config.Completion.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_ENDPOINT")); v != "" {
		config.Completion.Endpoint = v
	}
	config.Webhook.Secret = strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))
	if v := os.Getenv("HOST"); v != "" {
		config.Server.Host = v
	}

	for _, iv := range []struct {
		name string
		dst  *int
	}{
		{"MAX_REPLY_LEN", &config.Limits.MaxReplyLen},
		{"MAX_QUERY_LEN", &config.Limits.MaxQueryLen},
		{"PORT", &config.Server.Port},
	} {
		if v := os.Getenv(iv.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", iv.name, err)
			}
			*iv.dst = n
		}
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse REQUEST_TIMEOUT: %w", err)
		}
		config.Completion.Timeout = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid. Struct tags cover ranges
// and required fields; anything the tags cannot express is checked here.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Webhook secret is optional, but a secret without a header name to
	// read the digest from can never verify anything.
	if c.Webhook.Secret != "" && c.Webhook.SignatureHeader == "" {
		return fmt.Errorf("webhook secret set but signature header empty")
	}

	return nil
}
