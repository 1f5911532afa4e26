package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	LogFile     string
	DatabaseURL string
	RedisURL    string
	LLM         LLMConfig
	Report      ReportConfig
	Session     SessionConfig
}

type LLMConfig struct {
	// Provider is "gemini" or "groq".
	Provider   string
	APIKey     string
	FlashModel string
	ProModel   string
	GroqAPIKey string
	GroqModel  string
	// Fake selects the deterministic offline client.
	Fake       bool
	Retries    int
	RetryDelay time.Duration
	// RPS caps outgoing model calls per second; zero disables the limit.
	RPS   float64
	Burst int
}

const (
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
)

// HasCredentials reports whether the selected provider has an API key.
func (c LLMConfig) HasCredentials() bool {
	if c.Provider == ProviderGroq {
		return c.GroqAPIKey != ""
	}
	return c.APIKey != ""
}

// ReportConfig describes the S3-compatible report bucket.
type ReportConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	CacheTTL  time.Duration
	// Dir stores reports as files when no remote backend is configured.
	Dir string
}

type SessionConfig struct {
	MaxSessions int
}

func (c ReportConfig) CanUseS3() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs reads .env, then flags, then the environment. Environment
// values win over flags.
func LoadArgs(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	fake := fs.Bool("fake-llm", false, "use the offline fake LLM")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	llmCfg, err := loadLLMConfig(*fake)
	if err != nil {
		return nil, err
	}
	reportCfg, err := loadReportConfig(env)
	if err != nil {
		return nil, err
	}
	maxSessions, err := envInt("SESSION_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        *port,
		Env:         env,
		LogFile:     strings.TrimSpace(os.Getenv("LOG_FILE")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		LLM:         llmCfg,
		Report:      reportCfg,
		Session:     SessionConfig{MaxSessions: maxSessions},
	}
	if isLocal(env) {
		applyLocalDefaults(cfg)
	}
	return cfg, nil
}

func loadLLMConfig(fakeFlag bool) (LLMConfig, error) {
	fake, err := envBool("LLM_FAKE", fakeFlag)
	if err != nil {
		return LLMConfig{}, err
	}
	retries, err := envInt("LLM_RETRIES", 2)
	if err != nil {
		return LLMConfig{}, err
	}
	delayMs, err := envInt("LLM_RETRY_DELAY_MS", 1000)
	if err != nil {
		return LLMConfig{}, err
	}
	rps, err := envFloat("LLM_RPS", 0)
	if err != nil {
		return LLMConfig{}, err
	}
	burst, err := envInt("LLM_BURST", 1)
	if err != nil {
		return LLMConfig{}, err
	}
	provider := strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROVIDER")), ProviderGemini))
	if provider != ProviderGemini && provider != ProviderGroq {
		return LLMConfig{}, fmt.Errorf("LLM_PROVIDER: unsupported provider %q", provider)
	}
	return LLMConfig{
		Provider:   provider,
		APIKey:     firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
		FlashModel: strings.TrimSpace(os.Getenv("GEMINI_MODEL_FLASH")),
		ProModel:   strings.TrimSpace(os.Getenv("GEMINI_MODEL_PRO")),
		GroqAPIKey: strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqModel:  strings.TrimSpace(os.Getenv("GROQ_MODEL")),
		Fake:       fake,
		Retries:    retries,
		RetryDelay: time.Duration(delayMs) * time.Millisecond,
		RPS:        rps,
		Burst:      burst,
	}, nil
}

func loadReportConfig(env string) (ReportConfig, error) {
	ttlSec, err := envInt("REPORT_CACHE_TTL_SEC", 300)
	if err != nil {
		return ReportConfig{}, err
	}
	return ReportConfig{
		Endpoint:  strings.TrimSpace(os.Getenv("REPORT_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("REPORT_S3_BUCKET")), "rationalist-reports"),
		UseSSL:    resolveUseSSL(env),
		CacheTTL:  time.Duration(ttlSec) * time.Second,
		Dir:       strings.TrimSpace(os.Getenv("REPORT_DIR")),
	}, nil
}

func resolveUseSSL(env string) bool {
	if isLocal(env) {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("REPORT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
