package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

const (
	defaultAPIURL        = "http://localhost:8000/api"
	defaultTimeout       = 30 * time.Second
	defaultNavigateDelay = 1500 * time.Millisecond
)

// Config aggregates the settings of the client and the fake backend.
type Config struct {
	Client ClientConfig
	Server ServerConfig
	AI     AIConfig
	Log    LogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Client: client, Server: server, AI: ai, Log: logCfg}, nil
}

// ClientConfig describes how the client reaches the backend.
type ClientConfig struct {
	BaseURL         string
	Timeout         time.Duration
	CredentialsFile string
	NavigateDelay   time.Duration
}

func loadClientConfig() (ClientConfig, error) {
	baseURL := strings.TrimRight(getEnvOrDefault("MEMORIA_API_URL", defaultAPIURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return ClientConfig{}, fmt.Errorf("invalid MEMORIA_API_URL value %q: must be http(s)", baseURL)
	}

	timeout := defaultTimeout
	seconds, err := parseOptionalIntEnv("MEMORIA_TIMEOUT")
	if err != nil {
		return ClientConfig{}, err
	}
	if seconds != nil {
		if *seconds < 1 {
			return ClientConfig{}, fmt.Errorf("invalid MEMORIA_TIMEOUT value %d: must be positive", *seconds)
		}
		timeout = time.Duration(*seconds) * time.Second
	}

	delay := defaultNavigateDelay
	delayMS, err := parseOptionalIntEnv("MEMORIA_NAVIGATE_DELAY_MS")
	if err != nil {
		return ClientConfig{}, err
	}
	if delayMS != nil && *delayMS >= 0 {
		delay = time.Duration(*delayMS) * time.Millisecond
	}

	credentialsFile := strings.TrimSpace(os.Getenv("MEMORIA_CREDENTIALS"))
	if credentialsFile == "" {
		credentialsFile = defaultCredentialsFile()
	}

	return ClientConfig{
		BaseURL:         baseURL,
		Timeout:         timeout,
		CredentialsFile: credentialsFile,
		NavigateDelay:   delay,
	}, nil
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".memoria", "credentials.yaml")
	}
	return filepath.Join(home, ".memoria", "credentials.yaml")
}

// ServerConfig describes the fake backend listener.
type ServerConfig struct {
	Addr string
	// RequireImage makes finalize reject avatars without a profile image.
	RequireImage bool
}

// loadServerConfig parses the listen address.
func loadServerConfig() (ServerConfig, error) {
	requireImage, err := parseBoolEnv("FAKEAPI_REQUIRE_IMAGE", false)
	if err != nil {
		return ServerConfig{}, err
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// allow ":8000" or "127.0.0.1:8000"
		return ServerConfig{Addr: port, RequireImage: requireImage}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, RequireImage: requireImage}, nil
}

// AIConfig describes the chat model the fake backend may use for replies.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string
	Development bool
	OutputPaths []string
}

func loadLogConfig() (LogConfig, error) {
	dev, err := parseBoolEnv("LOG_DEV", false)
	if err != nil {
		return LogConfig{}, err
	}

	var outputs []string
	if raw := strings.TrimSpace(os.Getenv("LOG_OUTPUT")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if p := strings.TrimSpace(part); p != "" {
				outputs = append(outputs, p)
			}
		}
	}

	return LogConfig{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Development: dev,
		OutputPaths: outputs,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
