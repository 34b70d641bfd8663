// Package config loads pipeline configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by DOCPORTAL_CONFIG, then environment variables (a .env file in
// the working directory is loaded first when present).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	perrors "github.com/sam02425/Document-Portal/internal/errors"
)

// Config holds the full pipeline configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Quality  QualityConfig  `yaml:"quality"`
	Compress CompressConfig `yaml:"compress"`
	Router   RouterConfig   `yaml:"router"`
	Vision   VisionConfig   `yaml:"vision"`
	OCR      OCRConfig      `yaml:"ocr"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CacheConfig struct {
	// RedisURL enables the distributed tier. Empty means in-process only.
	RedisURL      string        `yaml:"redis_url"`
	L1Size        int           `yaml:"l1_size"`
	OCRTTL        time.Duration `yaml:"ocr_ttl"`
	VisionTTL     time.Duration `yaml:"vision_ttl"`
	ExtractionTTL time.Duration `yaml:"extraction_ttl"`
	RedisTimeout  time.Duration `yaml:"redis_timeout"`
}

// QualityConfig carries the assessor thresholds.
type QualityConfig struct {
	BrightnessVarMin float64 `yaml:"brightness_var_min"`
	BlurVarMin       float64 `yaml:"blur_var_min"`
	ContrastMin      float64 `yaml:"contrast_min"`
	RotationMaxDeg   float64 `yaml:"rotation_max_deg"`
	EdgeDensityMin   float64 `yaml:"edge_density_min"`
}

type CompressConfig struct {
	TargetSimilarity float64 `yaml:"target_similarity"`
	MaxDimension     int     `yaml:"max_dimension"`
	MaxIterations    int     `yaml:"max_iterations"`
	SmallFileBytes   int     `yaml:"small_file_bytes"`
}

type RouterConfig struct {
	Threshold     float64       `yaml:"threshold"`
	VisionTimeout time.Duration `yaml:"vision_timeout"`
}

type VisionConfig struct {
	// Project is the Google Cloud project. Empty disables the vision extractor.
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
	Model   string `yaml:"model"`
}

type OCRConfig struct {
	Language       string `yaml:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix"`
}

type WorkerConfig struct {
	PageWorkers     int           `yaml:"page_workers"`
	Concurrency     int           `yaml:"concurrency"`
	QueueName       string        `yaml:"queue_name"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	ResultRetention time.Duration `yaml:"result_retention"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Cache: CacheConfig{
			L1Size:        100,
			OCRTTL:        24 * time.Hour,
			VisionTTL:     30 * 24 * time.Hour,
			ExtractionTTL: 7 * 24 * time.Hour,
			RedisTimeout:  500 * time.Millisecond,
		},
		Quality: QualityConfig{
			BrightnessVarMin: 1000,
			BlurVarMin:       100,
			ContrastMin:      50,
			RotationMaxDeg:   2.0,
			EdgeDensityMin:   0.05,
		},
		Compress: CompressConfig{
			TargetSimilarity: 0.98,
			MaxDimension:     2048,
			MaxIterations:    10,
			SmallFileBytes:   100 * 1024,
		},
		Router: RouterConfig{
			Threshold:     80,
			VisionTimeout: 30 * time.Second,
		},
		Vision: VisionConfig{
			Region: "us-central1",
			Model:  "gemini-2.0-flash",
		},
		OCR: OCRConfig{Language: "eng"},
		Worker: WorkerConfig{
			PageWorkers:     4,
			Concurrency:     4,
			QueueName:       "documents",
			JobTimeout:      5 * time.Minute,
			ResultRetention: 24 * time.Hour,
		},
	}
}

// Load resolves configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("DOCPORTAL_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Log.Level = getEnvOrDefault("DOCPORTAL_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("DOCPORTAL_LOG_FORMAT", c.Log.Format)

	c.Cache.RedisURL = getEnvOrDefault("REDIS_URL", c.Cache.RedisURL)
	c.Cache.L1Size = getEnvAsIntOrDefault("CACHE_L1_SIZE", c.Cache.L1Size)
	c.Cache.OCRTTL = getEnvAsDurationOrDefault("OCR_TTL", c.Cache.OCRTTL)
	c.Cache.VisionTTL = getEnvAsDurationOrDefault("VISION_TTL", c.Cache.VisionTTL)
	c.Cache.ExtractionTTL = getEnvAsDurationOrDefault("EXTRACTION_TTL", c.Cache.ExtractionTTL)

	c.Compress.TargetSimilarity = getEnvAsFloatOrDefault("COMPRESS_TARGET", c.Compress.TargetSimilarity)
	c.Compress.MaxDimension = getEnvAsIntOrDefault("COMPRESS_MAX_DIM", c.Compress.MaxDimension)

	c.Router.Threshold = getEnvAsFloatOrDefault("ROUTER_THRESHOLD", c.Router.Threshold)
	c.Router.VisionTimeout = getEnvAsDurationOrDefault("VISION_TIMEOUT", c.Router.VisionTimeout)

	c.Vision.Project = getEnvOrDefault("VISION_PROJECT", c.Vision.Project)
	c.Vision.Region = getEnvOrDefault("VISION_REGION", c.Vision.Region)
	c.Vision.Model = getEnvOrDefault("VISION_MODEL", c.Vision.Model)

	c.OCR.Language = getEnvOrDefault("OCR_LANGUAGE", c.OCR.Language)
	c.OCR.TessdataPrefix = getEnvOrDefault("TESSDATA_PREFIX", c.OCR.TessdataPrefix)

	c.Worker.PageWorkers = getEnvAsIntOrDefault("PAGE_WORKERS", c.Worker.PageWorkers)
	c.Worker.Concurrency = getEnvAsIntOrDefault("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.QueueName = getEnvOrDefault("QUEUE_NAME", c.Worker.QueueName)
	c.Worker.JobTimeout = getEnvAsDurationOrDefault("JOB_TIMEOUT", c.Worker.JobTimeout)
	c.Worker.ResultRetention = getEnvAsDurationOrDefault("RESULT_RETENTION", c.Worker.ResultRetention)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Cache.L1Size <= 0 {
		return perrors.NewConfigError("cache.l1_size", "must be positive")
	}
	if c.Compress.TargetSimilarity <= 0 || c.Compress.TargetSimilarity > 1 {
		return perrors.NewConfigError("compress.target_similarity", "must be in (0,1]")
	}
	if c.Compress.MaxDimension <= 0 {
		return perrors.NewConfigError("compress.max_dimension", "must be positive")
	}
	if c.Compress.MaxIterations <= 0 {
		return perrors.NewConfigError("compress.max_iterations", "must be positive")
	}
	if c.Router.Threshold < 0 || c.Router.Threshold > 100 {
		return perrors.NewConfigError("router.threshold", "must be in [0,100]")
	}
	if c.Router.VisionTimeout <= 0 {
		return perrors.NewConfigError("router.vision_timeout", "must be positive")
	}
	if c.Worker.PageWorkers <= 0 {
		return perrors.NewConfigError("worker.page_workers", "must be positive")
	}
	if c.Worker.Concurrency <= 0 {
		return perrors.NewConfigError("worker.concurrency", "must be positive")
	}
	if c.Worker.QueueName == "" {
		return perrors.NewConfigError("worker.queue_name", "is required")
	}
	return nil
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
