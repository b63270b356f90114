package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port        string `yaml:"port"`
	LogLevel    string `yaml:"logLevel"`
	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	GroqBaseURL string `yaml:"groqBaseURL"`
	GroqAPIKey  string `yaml:"groqAPIKey"`
	GroqModel   string `yaml:"groqModel"`

	JWTSecret       string `yaml:"jwtSecret"`
	TokenTTLMinutes int    `yaml:"tokenTTLMinutes"`

	MaxUploadBytes int64 `yaml:"maxUploadBytes"`
	// StreamWordDelayMs paces word-by-word SSE streaming. Zero or
	// unset means the default 80ms; any negative value disables pacing
	// entirely.
	StreamWordDelayMs int `yaml:"streamWordDelayMs"`
	FetchTimeoutSecs  int `yaml:"fetchTimeoutSeconds"`

	OCRLanguages     string `yaml:"ocrLanguages"`
	OCRDensity       int    `yaml:"ocrDensity"`
	OCRMaxConcurrent int    `yaml:"ocrMaxConcurrent"`

	QuestionStream  string `yaml:"questionStream"`
	QuestionWorkers int    `yaml:"questionWorkers"`

	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("GROQ_BASE_URL"); v != "" {
		cfg.GroqBaseURL = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		cfg.GroqAPIKey = v
	}
	if v := os.Getenv("GROQ_MODEL"); v != "" {
		cfg.GroqModel = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("PORTAL_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("PORTAL_STREAM_WORD_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StreamWordDelayMs = n
		}
	}
	if v := os.Getenv("PORTAL_FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FetchTimeoutSecs = n
		}
	}
	if v := os.Getenv("PORTAL_OCR_LANGUAGES"); v != "" {
		cfg.OCRLanguages = v
	}
	if v := os.Getenv("PORTAL_OCR_DENSITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OCRDensity = n
		}
	}
	if v := os.Getenv("PORTAL_OCR_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OCRMaxConcurrent = n
		}
	}

	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.TokenTTLMinutes <= 0 {
		cfg.TokenTTLMinutes = 24 * 60
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.StreamWordDelayMs < 0 {
		cfg.StreamWordDelayMs = 0
	} else if cfg.StreamWordDelayMs == 0 {
		cfg.StreamWordDelayMs = 80
	}
	if cfg.FetchTimeoutSecs <= 0 {
		cfg.FetchTimeoutSecs = 20
	}
	if cfg.OCRLanguages == "" {
		cfg.OCRLanguages = "eng+fra+ara"
	}
	if cfg.OCRDensity <= 0 {
		cfg.OCRDensity = 150
	}
	if cfg.OCRMaxConcurrent <= 0 {
		cfg.OCRMaxConcurrent = 2
	}
	if cfg.QuestionStream == "" {
		cfg.QuestionStream = "studyportal:questions"
	}
	if cfg.QuestionWorkers <= 0 {
		cfg.QuestionWorkers = 1
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 30
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required (set in config.yaml or REDIS_ADDR)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml)")
	}
	if cfg.MinioAccessKey == "" {
		return errors.New("config: minioAccessKey is required (set in config.yaml)")
	}
	if cfg.MinioSecretKey == "" {
		return errors.New("config: minioSecretKey is required (set in config.yaml)")
	}
	if cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required (set in config.yaml)")
	}
	if cfg.GroqBaseURL == "" {
		return errors.New("config: groqBaseURL is required (set in config.yaml or GROQ_BASE_URL)")
	}
	if cfg.GroqAPIKey == "" {
		return errors.New("config: groqAPIKey is required (set in config.yaml or GROQ_API_KEY)")
	}
	if cfg.GroqModel == "" {
		return errors.New("config: groqModel is required (set in config.yaml)")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or JWT_SECRET)")
	}
	return nil
}
