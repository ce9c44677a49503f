package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"

	"github.com/zhouzirui/msl-practice/backend/internal/logger"
)

// Session store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Speech recognizers.
const (
	SpeechProviderVolcengine = "volcengine"
	SpeechProviderWhisper    = "whisper"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Log     logger.Config
	AI      AIConfig
	Speech  SpeechConfig
	Storage StorageConfig
	Blob    BlobConfig
	Auth    AuthConfig
}

// Load 从环境变量加载配置（.env 由 main 预先载入）。
func Load() (*Config, error) {
	v := newViper()

	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig(v)
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig(v)
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig(v)
	if err != nil {
		return nil, err
	}

	blob, err := loadBlobConfig(v)
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: server,
		Log: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		AI:      ai,
		Speech:  speech,
		Storage: storage,
		Blob:    blob,
		Auth:    auth,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
	v.SetDefault("ARK_REGION", "cn-beijing")
	// 兼容旧的 Model 变量名
	_ = v.BindEnv("ARK_MODEL", "ARK_MODEL", "Model")

	v.SetDefault("SPEECH_PROVIDER", SpeechProviderVolcengine)
	v.SetDefault("SPEECH_ASR_LANGUAGE", "en-US")
	v.SetDefault("WHISPER_URL", "http://localhost:8387")
	v.SetDefault("WHISPER_MODEL", "base")

	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_UPLOAD_TTL", "10m")
	v.SetDefault("S3_DOWNLOAD_TTL", "1h")

	v.SetDefault("JWT_TTL", "168h")
	return v
}

// Validate 检查配置组合是否一致。
func (c *Config) Validate() error {
	switch c.Storage.SessionBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("SESSION_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("SESSION_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("invalid SESSION_BACKEND value: %q", c.Storage.SessionBackend)
	}

	switch c.Speech.Provider {
	case SpeechProviderVolcengine, SpeechProviderWhisper:
	default:
		return fmt.Errorf("invalid SPEECH_PROVIDER value: %q", c.Speech.Provider)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	port := strings.TrimSpace(v.GetString("PORT"))
	origins := splitList(v.GetString("CORS_ORIGINS"))

	if strings.Contains(port, ":") {
		// 允许直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, CORSOrigins: origins}, nil
	}

	if port == "" || strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, CORSOrigins: origins}, nil
}

// AIConfig 描述大模型相关配置。
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

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
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

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

func loadAIConfig(v *viper.Viper) (AIConfig, error) {
	temperature, err := parseOptionalFloat(v, "ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloat(v, "ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalInt(v, "ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      trimmed(v, "ARK_API_KEY"),
		AccessKey:   trimmed(v, "ARK_ACCESS_KEY"),
		SecretKey:   trimmed(v, "ARK_SECRET_KEY"),
		Model:       trimmed(v, "ARK_MODEL"),
		BaseURL:     trimmed(v, "ARK_BASE_URL"),
		Region:      trimmed(v, "ARK_REGION"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// SpeechConfig 描述语音识别配置。
type SpeechConfig struct {
	Provider       string
	AppID          string
	AccessToken    string
	ConcurrentMode bool
	ASRLanguage    string
	WhisperURL     string
	WhisperModel   string
	Timeout        time.Duration
}

// Enabled 表示所选识别服务的必需配置是否齐全。
func (c SpeechConfig) Enabled() bool {
	if c.Provider == SpeechProviderWhisper {
		return c.WhisperURL != ""
	}
	return c.AppID != "" && c.AccessToken != ""
}

func loadSpeechConfig(v *viper.Viper) (SpeechConfig, error) {
	timeout, err := parseOptionalInt(v, "SPEECH_TIMEOUT")
	if err != nil {
		return SpeechConfig{}, err
	}
	timeoutSeconds := 120
	if timeout != nil {
		timeoutSeconds = *timeout
	}

	concurrent, err := parseBool(v, "SPEECH_CONCURRENT_MODE", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	accessToken := trimmed(v, "SPEECH_ACCESS_TOKEN")
	if accessToken == "" {
		accessToken = trimmed(v, "SPEECH_API_KEY")
	}

	return SpeechConfig{
		Provider:       strings.ToLower(trimmed(v, "SPEECH_PROVIDER")),
		AppID:          trimmed(v, "SPEECH_APP_ID"),
		AccessToken:    accessToken,
		ConcurrentMode: concurrent,
		ASRLanguage:    trimmed(v, "SPEECH_ASR_LANGUAGE"),
		WhisperURL:     strings.TrimRight(trimmed(v, "WHISPER_URL"), "/"),
		WhisperModel:   trimmed(v, "WHISPER_MODEL"),
		Timeout:        time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// StorageConfig 描述会话、用户与角色的持久化配置。
type StorageConfig struct {
	SessionBackend   string
	DatabaseURL      string
	DatabaseMaxConns int32
	RedisURL         string
}

func loadStorageConfig(v *viper.Viper) (StorageConfig, error) {
	maxConns, err := parseOptionalInt(v, "DATABASE_MAX_CONNS")
	if err != nil {
		return StorageConfig{}, err
	}

	cfg := StorageConfig{
		SessionBackend: strings.ToLower(trimmed(v, "SESSION_BACKEND")),
		DatabaseURL:    trimmed(v, "DATABASE_URL"),
		RedisURL:       trimmed(v, "REDIS_URL"),
	}
	if maxConns != nil {
		cfg.DatabaseMaxConns = int32(*maxConns)
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = BackendMemory
		if cfg.DatabaseURL != "" {
			cfg.SessionBackend = BackendPostgres
		}
	}
	return cfg, nil
}

// BlobConfig 描述录音存储（S3 兼容）配置。
type BlobConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	UploadTTL      time.Duration
	DownloadTTL    time.Duration
}

// Enabled 表示是否配置了存储桶。
func (c BlobConfig) Enabled() bool {
	return c.Bucket != ""
}

func loadBlobConfig(v *viper.Viper) (BlobConfig, error) {
	pathStyle, err := parseBool(v, "S3_FORCE_PATH_STYLE", false)
	if err != nil {
		return BlobConfig{}, err
	}

	uploadTTL, err := parseDuration(v, "S3_UPLOAD_TTL")
	if err != nil {
		return BlobConfig{}, err
	}

	downloadTTL, err := parseDuration(v, "S3_DOWNLOAD_TTL")
	if err != nil {
		return BlobConfig{}, err
	}

	return BlobConfig{
		Bucket:         trimmed(v, "S3_BUCKET"),
		Region:         trimmed(v, "S3_REGION"),
		Endpoint:       trimmed(v, "S3_ENDPOINT"),
		AccessKey:      trimmed(v, "S3_ACCESS_KEY"),
		SecretKey:      trimmed(v, "S3_SECRET_KEY"),
		ForcePathStyle: pathStyle,
		UploadTTL:      uploadTTL,
		DownloadTTL:    downloadTTL,
	}, nil
}

// AuthConfig 描述 JWT 签发配置。
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

func loadAuthConfig(v *viper.Viper) (AuthConfig, error) {
	ttl, err := parseDuration(v, "JWT_TTL")
	if err != nil {
		return AuthConfig{}, err
	}
	return AuthConfig{JWTSecret: trimmed(v, "JWT_SECRET"), TokenTTL: ttl}, nil
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(v *viper.Viper, key string, defaultValue bool) (bool, error) {
	raw := trimmed(v, key)
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := trimmed(v, key)
	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloat(v *viper.Viper, key string) (*float64, error) {
	raw := trimmed(v, key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return &val, nil
}

func parseOptionalInt(v *viper.Viper, key string) (*int, error) {
	raw := trimmed(v, key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return &val, nil
}
