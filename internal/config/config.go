package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr   string        `yaml:"listen_addr" validate:"required"`
	AppURL       string        `yaml:"app_url" validate:"required,url"`
	AuthToken    string        `yaml:"auth_token"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	DBDriver string `yaml:"db_driver" validate:"oneof=sqlite mysql"`
	DBDSN    string `yaml:"db_dsn" validate:"required"`

	// Disk names the storage backend new uploads are written to.
	Disk             string    `yaml:"disk" validate:"oneof=public ftp"`
	StoragePath      string    `yaml:"storage_path" validate:"required"`
	StorageURLPrefix string    `yaml:"storage_url_prefix" validate:"required"`
	FTP              FTPConfig `yaml:"ftp"`

	Sizes       []int `yaml:"sizes" validate:"dive,gt=0"`
	QualityJPG  int   `yaml:"quality_jpg" validate:"min=0,max=100"`
	QualityWebP int   `yaml:"quality_webp" validate:"min=0,max=100"`
	QualityAVIF int   `yaml:"quality_avif" validate:"min=0,max=100"`

	// MaxUploadSize is in kilobytes.
	MaxUploadSize    int      `yaml:"max_upload_size" validate:"gt=0"`
	AllowedMIMETypes []string `yaml:"allowed_mime_types"`

	PerPage           int  `yaml:"per_page" validate:"gt=0"`
	FallbackOnMissing bool `yaml:"fallback_on_missing"`

	Cache   CacheConfig   `yaml:"cache"`
	Sitemap SitemapConfig `yaml:"sitemap"`

	UseQueue     bool `yaml:"use_queue"`
	QueueWorkers int  `yaml:"queue_workers" validate:"gte=0"`
}

type FTPConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	// BaseURL is the public URL the FTP root is served from.
	BaseURL string `yaml:"base_url"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver" validate:"oneof=memory redis"`
	// TTL is in seconds.
	TTL           int    `yaml:"ttl" validate:"gte=0"`
	Prefix        string `yaml:"prefix"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type SitemapConfig struct {
	// PageURLPattern may contain {folder_path}, {basename} and {id}.
	PageURLPattern string `yaml:"page_url_pattern"`
	License        string `yaml:"license"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		ListenAddr:       ":8080",
		AppURL:           "http://localhost:8080",
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     120 * time.Second,
		DBDriver:         "sqlite",
		DBDSN:            "/data/db/seo-images.db",
		Disk:             "public",
		StoragePath:      "/data/storage",
		StorageURLPrefix: "/storage",
		Sizes:            []int{480, 768, 1200, 1920},
		QualityJPG:       80,
		QualityWebP:      80,
		QualityAVIF:      60,
		MaxUploadSize:    5120,
		AllowedMIMETypes: []string{
			"image/jpeg",
			"image/png",
			"image/gif",
			"image/webp",
			"image/avif",
			"image/heic",
			"image/heif",
		},
		PerPage: 9,
		Cache: CacheConfig{
			Enabled: true,
			Driver:  "memory",
			TTL:     3600,
			Prefix:  "seo_images_",
		},
		QueueWorkers: 2,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by SEO_IMAGES_CONFIG, and SEO_IMAGES_* environment variables, in that
// order of precedence, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("SEO_IMAGES_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("SEO_IMAGES_LISTEN_ADDR", c.ListenAddr)
	c.AppURL = getEnv("SEO_IMAGES_APP_URL", c.AppURL)
	c.AuthToken = getEnv("SEO_IMAGES_AUTH_TOKEN", c.AuthToken)
	c.ReadTimeout = getEnvDuration("SEO_IMAGES_READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = getEnvDuration("SEO_IMAGES_WRITE_TIMEOUT", c.WriteTimeout)

	c.DBDriver = getEnv("SEO_IMAGES_DB_DRIVER", c.DBDriver)
	c.DBDSN = getEnv("SEO_IMAGES_DB_DSN", c.DBDSN)

	c.Disk = getEnv("SEO_IMAGES_DISK", c.Disk)
	c.StoragePath = getEnv("SEO_IMAGES_STORAGE_PATH", c.StoragePath)
	c.StorageURLPrefix = getEnv("SEO_IMAGES_STORAGE_URL_PREFIX", c.StorageURLPrefix)
	c.FTP.Host = getEnv("SEO_IMAGES_FTP_HOST", c.FTP.Host)
	c.FTP.Port = getEnv("SEO_IMAGES_FTP_PORT", c.FTP.Port)
	c.FTP.User = getEnv("SEO_IMAGES_FTP_USER", c.FTP.User)
	c.FTP.Password = getEnv("SEO_IMAGES_FTP_PASSWORD", c.FTP.Password)
	c.FTP.BaseURL = getEnv("SEO_IMAGES_FTP_BASE_URL", c.FTP.BaseURL)

	c.Sizes = getEnvInts("SEO_IMAGES_SIZES", c.Sizes)
	c.QualityJPG = getEnvInt("SEO_IMAGES_QUALITY_JPG", c.QualityJPG)
	c.QualityWebP = getEnvInt("SEO_IMAGES_QUALITY_WEBP", c.QualityWebP)
	c.QualityAVIF = getEnvInt("SEO_IMAGES_QUALITY_AVIF", c.QualityAVIF)
	c.MaxUploadSize = getEnvInt("SEO_IMAGES_MAX_UPLOAD_SIZE", c.MaxUploadSize)
	c.AllowedMIMETypes = getEnvList("SEO_IMAGES_ALLOWED_MIME_TYPES", c.AllowedMIMETypes)
	c.PerPage = getEnvInt("SEO_IMAGES_PER_PAGE", c.PerPage)
	c.FallbackOnMissing = getEnvBool("SEO_IMAGES_FALLBACK_ON_MISSING", c.FallbackOnMissing)

	c.Cache.Enabled = getEnvBool("SEO_IMAGES_CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.Driver = getEnv("SEO_IMAGES_CACHE_DRIVER", c.Cache.Driver)
	c.Cache.TTL = getEnvInt("SEO_IMAGES_CACHE_TTL", c.Cache.TTL)
	c.Cache.Prefix = getEnv("SEO_IMAGES_CACHE_PREFIX", c.Cache.Prefix)
	c.Cache.RedisAddr = getEnv("SEO_IMAGES_REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPassword = getEnv("SEO_IMAGES_REDIS_PASSWORD", c.Cache.RedisPassword)
	c.Cache.RedisDB = getEnvInt("SEO_IMAGES_REDIS_DB", c.Cache.RedisDB)

	c.Sitemap.PageURLPattern = getEnv("SEO_IMAGES_SITEMAP_PAGE_URL_PATTERN", c.Sitemap.PageURLPattern)
	c.Sitemap.License = getEnv("SEO_IMAGES_SITEMAP_LICENSE", c.Sitemap.License)

	c.UseQueue = getEnvBool("SEO_IMAGES_USE_QUEUE", c.UseQueue)
	c.QueueWorkers = getEnvInt("SEO_IMAGES_QUEUE_WORKERS", c.QueueWorkers)
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Disk == "ftp" && (c.FTP.Host == "" || c.FTP.BaseURL == "") {
		return errors.New("ftp.host and ftp.base_url are required when disk is ftp")
	}
	if c.Cache.Enabled && c.Cache.Driver == "redis" && c.Cache.RedisAddr == "" {
		return errors.New("cache.redis_addr is required when cache.driver is redis")
	}
	return nil
}

// MaxUploadBytes is MaxUploadSize converted to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadSize) * 1024
}

// CacheTTL is the cache lifetime as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvInts parses a comma-separated integer list. Any malformed entry
// keeps the default.
func getEnvInts(key string, defaultValue []int) []int {
	parts := getEnvList(key, nil)
	if parts == nil {
		return defaultValue
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}
