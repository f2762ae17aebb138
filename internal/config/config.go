package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// Provider identifiers accepted by AI_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Store  StoreConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	storeCfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Store: storeCfg}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider        string
	APIKey          string
	BaseURL         string
	Model           string
	Region          string
	Temperature     *float64
	MaxTokens       *int
	DisableThinking bool
}

// StoreConfig 描述会话持久化配置。
type StoreConfig struct {
	Dir              string
	MaxConversations int
}

// Enabled 表示是否提供了必需的模型凭证。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && c.APIKey != ""
}

// NewChatModel constructs a tool-calling chat model for the configured
// provider. The default provider speaks the OpenAI wire format, which covers
// OpenAI-compatible hosts such as NVIDIA NIM; "ark" selects Volcengine Ark.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("模型凭证或配置缺失，至少提供 AI_API_KEY 和 AI_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	switch c.Provider {
	case "", ProviderOpenAI:
		cfg := &openai.ChatModelConfig{
			BaseURL:     c.BaseURL,
			APIKey:      c.APIKey,
			Model:       c.Model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		}
		if c.DisableThinking {
			// Hosts serving "thinking" variants (e.g. kimi-k2-thinking)
			// accept this template switch to turn extended reasoning off.
			cfg.ExtraFields = map[string]any{
				"chat_template_kwargs": map[string]any{"thinking": false},
			}
		}
		return openai.NewChatModel(ctx, cfg)
	case ProviderArk:
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			Model:       c.Model,
			Temperature: temperature,
			MaxTokens:   maxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid AI_PROVIDER: %s", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		def := 0.7
		temperature = &def
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		def := 500
		maxTokens = &def
	}

	disableThinking, err := parseBoolEnv("AI_DISABLE_THINKING", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		Provider:        getEnvOrDefault("AI_PROVIDER", ProviderOpenAI),
		APIKey:          strings.TrimSpace(os.Getenv("AI_API_KEY")),
		BaseURL:         getEnvOrDefault("AI_BASE_URL", "https://integrate.api.nvidia.com/v1"),
		Model:           getEnvOrDefault("AI_MODEL", "moonshotai/kimi-k2-thinking"),
		Region:          getEnvOrDefault("AI_REGION", "cn-beijing"),
		Temperature:     temperature,
		MaxTokens:       maxTokens,
		DisableThinking: disableThinking,
	}, nil
}

func loadStoreConfig() (StoreConfig, error) {
	maxConversations := 0
	if override, err := parseOptionalIntEnv("STORE_MAX_CONVERSATIONS"); err != nil {
		return StoreConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return StoreConfig{}, fmt.Errorf("STORE_MAX_CONVERSATIONS must be positive, got %d", *override)
		}
		maxConversations = *override
	}

	return StoreConfig{
		Dir:              getEnvOrDefault("STORE_DIR", "data"),
		MaxConversations: maxConversations,
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
