package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port       string           `mapstructure:"port"`
	Storage    StorageConfig    `mapstructure:"storage"`
	MongoSQL   DatabaseConfig   `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig   `mapstructure:"pg"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Listing    ServiceConfig    `mapstructure:"listing"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Events     EventsConfig     `mapstructure:"events"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Rules      ChatRules        `mapstructure:"rules"`
}

// StorageConfig chooses the conversation/message store backend
type StorageConfig struct {
	// Driver mongo | memory
	Driver string `mapstructure:"driver"`
}

// ServiceConfig definition service port & name
type ServiceConfig struct {
	Port string `mapstructure:"service_port"`
	Name string `mapstructure:"service_name"`
}

// Address host:port of the service, empty when not configured
func (s ServiceConfig) Address() string {
	if s.Name == "" || s.Port == "" {
		return ""
	}
	return s.Name + ":" + s.Port
}

// RedisConfig definition redis setting
// Addr is used when no sentinel is configured in .env
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition attachment bucket
type MinIOConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	BucketName    string        `mapstructure:"bucket_name"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignTTL    time.Duration `mapstructure:"presign_ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// EventsConfig integration events broker
type EventsConfig struct {
	// Driver kafka | rabbitmq | "" (disabled)
	Driver        string   `mapstructure:"driver"`
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RabbitURL     string   `mapstructure:"rabbit_url"`
	Exchange      string   `mapstructure:"exchange"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// JWTConfig bearer credential verification
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// ChatRules business limits of the chat core
type ChatRules struct {
	MaxContentLength   int           `mapstructure:"max_content_length"`
	OfferTTL           time.Duration `mapstructure:"offer_ttl"`
	ProjectionInterval time.Duration `mapstructure:"projection_interval"`
	PingInterval       time.Duration `mapstructure:"ping_interval"`
	ListingCacheTTL    time.Duration `mapstructure:"listing_cache_ttl"`
	DefaultPageSize    int           `mapstructure:"default_page_size"`
	MaxPageSize        int           `mapstructure:"max_page_size"`
}

// WithDefaults fill zero values
func (r ChatRules) WithDefaults() ChatRules {
	if r.MaxContentLength <= 0 {
		r.MaxContentLength = 1000
	}
	if r.OfferTTL <= 0 {
		r.OfferTTL = 24 * time.Hour
	}
	if r.ProjectionInterval <= 0 {
		r.ProjectionInterval = 2 * time.Second
	}
	if r.PingInterval <= 0 {
		r.PingInterval = 10 * time.Minute
	}
	if r.ListingCacheTTL <= 0 {
		r.ListingCacheTTL = 5 * time.Minute
	}
	if r.DefaultPageSize <= 0 {
		r.DefaultPageSize = 50
	}
	if r.MaxPageSize <= 0 {
		r.MaxPageSize = 100
	}
	return r
}
