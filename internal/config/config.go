package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		IdleTimeout  time.Duration `yaml:"idleTimeout"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
		// MemoryBudgetMB dipakai memory-status untuk menghitung health score
		MemoryBudgetMB int `yaml:"memoryBudgetMB"`
	} `yaml:"server"`

	Log struct {
		Development bool   `yaml:"development"`
		Level       string `yaml:"level"`
	} `yaml:"log"`

	Database struct {
		Driver   string `yaml:"driver"` // postgres | mysql
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
		Migrate  bool   `yaml:"migrate"`
		Pool     Pool   `yaml:"pool"`
	} `yaml:"database"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"baseURL"`
	} `yaml:"openai"`

	Events struct {
		Driver  string   `yaml:"driver"` // none | nats | kafka
		URL     string   `yaml:"url"`
		Subject string   `yaml:"subject"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"events"`

	Intelligence struct {
		AnalyzerTimeout      time.Duration `yaml:"analyzerTimeout"`
		ActivationCacheTTL   time.Duration `yaml:"activationCacheTTL"`
		ReferenceCacheTTL    time.Duration `yaml:"referenceCacheTTL"`
		WorkflowCacheTTL     time.Duration `yaml:"workflowCacheTTL"`
		ConfidenceMultiplier float64       `yaml:"confidenceMultiplier"`
		NetworkGrowthCap     float64       `yaml:"networkGrowthCap"`
		BatchSize            int           `yaml:"batchSize"`
		Shipping             *bool         `yaml:"shipping"`
	} `yaml:"intelligence"`

	Outbox struct {
		PollInterval time.Duration `yaml:"pollInterval"`
		BatchSize    int           `yaml:"batchSize"`
		MaxAttempts  int           `yaml:"maxAttempts"`
		BaseBackoff  time.Duration `yaml:"baseBackoff"`
	} `yaml:"outbox"`

	Reports struct {
		RequireAI bool `yaml:"requireAI"`
	} `yaml:"reports"`

	Auth struct {
		// AdminKeys: nama operator -> api key
		AdminKeys map[string]string `yaml:"adminKeys"`
	} `yaml:"auth"`

	RateLimit struct {
		Rate  int           `yaml:"rate"`
		Every time.Duration `yaml:"every"`
	} `yaml:"ratelimit"`
}

// Pool mengatur connection pool database/sql
type Pool struct {
	MaxOpen     int           `yaml:"maxOpen"`
	MaxIdle     int           `yaml:"maxIdle"`
	MaxLifetime time.Duration `yaml:"maxLifetime"`
}

// Load baca file config.yaml, isi default, lalu override secret dari env
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse dipisah dari Load supaya bisa dites tanpa file
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.MemoryBudgetMB == 0 {
		c.Server.MemoryBudgetMB = 512
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		if c.Database.Driver == "mysql" {
			c.Database.Port = 3306
		} else {
			c.Database.Port = 5432
		}
	}
	if c.Database.Pool.MaxOpen == 0 {
		c.Database.Pool.MaxOpen = 25
	}
	if c.Database.Pool.MaxIdle == 0 {
		c.Database.Pool.MaxIdle = 10
	}
	if c.Database.Pool.MaxLifetime == 0 {
		c.Database.Pool.MaxLifetime = 30 * time.Minute
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "triangle"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 5 * time.Minute
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.Events.Driver == "" {
		c.Events.Driver = "none"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "triangle.network.events"
	}
	if c.Events.Topic == "" {
		c.Events.Topic = "network-intelligence-events"
	}

	in := &c.Intelligence
	if in.AnalyzerTimeout == 0 {
		in.AnalyzerTimeout = 500 * time.Millisecond
	}
	if in.ActivationCacheTTL == 0 {
		in.ActivationCacheTTL = 10 * time.Minute
	}
	if in.ReferenceCacheTTL == 0 {
		in.ReferenceCacheTTL = 24 * time.Hour
	}
	if in.WorkflowCacheTTL == 0 {
		in.WorkflowCacheTTL = 5 * time.Minute
	}
	if in.ConfidenceMultiplier == 0 {
		in.ConfidenceMultiplier = 1.0
	}
	if in.NetworkGrowthCap == 0 {
		in.NetworkGrowthCap = 2.5
	}
	if in.BatchSize == 0 {
		in.BatchSize = 10
	}
	if in.Shipping == nil {
		on := true
		in.Shipping = &on
	}

	if c.Outbox.PollInterval == 0 {
		c.Outbox.PollInterval = 2 * time.Second
	}
	if c.Outbox.BatchSize == 0 {
		c.Outbox.BatchSize = 20
	}
	if c.Outbox.MaxAttempts == 0 {
		c.Outbox.MaxAttempts = 6
	}
	if c.Outbox.BaseBackoff == 0 {
		c.Outbox.BaseBackoff = 2 * time.Second
	}

	if c.RateLimit.Rate == 0 {
		c.RateLimit.Rate = 120
	}
	if c.RateLimit.Every == 0 {
		c.RateLimit.Every = time.Minute
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Minio.SecretKey = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		if c.Auth.AdminKeys == nil {
			c.Auth.AdminKeys = map[string]string{}
		}
		c.Auth.AdminKeys["admin"] = v
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	switch c.Events.Driver {
	case "none", "nats", "kafka":
	default:
		return fmt.Errorf("config: unsupported events driver %q", c.Events.Driver)
	}
	return nil
}

// ShippingEnabled: analyzer shipping aktif kecuali dimatikan eksplisit
func (c *Config) ShippingEnabled() bool {
	return c.Intelligence.Shipping == nil || *c.Intelligence.Shipping
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

// DSN sesuai driver yang dipilih
func (c *Config) DSN() string {
	if strings.EqualFold(c.Database.Driver, "mysql") {
		return c.MySQLDSN()
	}
	return c.PostgresDSN()
}
