package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env               string   `mapstructure:"env"`
	Port              int      `mapstructure:"port"`
	ReadTimeoutSec    int      `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSec   int      `mapstructure:"write_timeout_seconds"`
	ShutdownSecond    int      `mapstructure:"shutdown_seconds"`
	FrontendURL       string   `mapstructure:"frontend_url"`
	AdminDashboardURL string   `mapstructure:"admin_dashboard_url"`
	CORSOrigins       []string `mapstructure:"cors_origins"`
}

type MongoConf struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

type RedisConf struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	PopularTTLSec int    `mapstructure:"popular_ttl_seconds"`
}

type JWTConf struct {
	Secret       string `mapstructure:"secret"`
	TTLHours     int    `mapstructure:"ttl_hours"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type EmailConf struct {
	APIKey       string `mapstructure:"api_key"`
	SenderEmail  string `mapstructure:"sender_email"`
	SenderName   string `mapstructure:"sender_name"`
	SupportInbox string `mapstructure:"support_inbox"`
}

type GeminiConf struct {
	APIKey          string `mapstructure:"api_key"`
	Model           string `mapstructure:"model"`
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`
	TimeoutSec      int    `mapstructure:"timeout_seconds"`
}

type S3Conf struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type RateLimitConf struct {
	RequestsPerMinute     int `mapstructure:"requests_per_minute"`
	Burst                 int `mapstructure:"burst"`
	ChatMessagesPerMinute int `mapstructure:"chat_messages_per_minute"`
}

type BreakerConf struct {
	MaxFailures int `mapstructure:"max_failures"`
	TimeoutSec  int `mapstructure:"timeout_seconds"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Log       LogConf       `mapstructure:"log"`
	Mongo     MongoConf     `mapstructure:"mongo"`
	Redis     RedisConf     `mapstructure:"redis"`
	JWT       JWTConf       `mapstructure:"jwt"`
	Kafka     KafkaConf     `mapstructure:"kafka"`
	Email     EmailConf     `mapstructure:"email"`
	Gemini    GeminiConf    `mapstructure:"gemini"`
	S3        S3Conf        `mapstructure:"s3"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
	Breaker   BreakerConf   `mapstructure:"breaker"`

	// derived
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MongoTimeout    time.Duration
	TokenTTL        time.Duration
	PopularTTL      time.Duration
	GeminiTimeout   time.Duration
	BreakerTimeout  time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 4000)
	v.SetDefault("app.read_timeout_seconds", 15)
	v.SetDefault("app.write_timeout_seconds", 30)
	v.SetDefault("app.shutdown_seconds", 15)
	v.SetDefault("app.frontend_url", "http://localhost:5173")
	v.SetDefault("app.admin_dashboard_url", "http://localhost:5174")
	v.SetDefault("app.cors_origins", []string{"http://localhost:5173", "http://localhost:5174"})
	v.SetDefault("log.level", "info")
	v.SetDefault("mongo.database", "bookstore")
	v.SetDefault("mongo.timeout_seconds", 10)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.popular_ttl_seconds", 300)
	v.SetDefault("jwt.ttl_hours", 24)
	v.SetDefault("kafka.topic", "bookstore.notifications")
	v.SetDefault("kafka.group_id", "bookstore-notifier")
	v.SetDefault("email.sender_name", "Bookstore")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.max_output_tokens", 200)
	v.SetDefault("gemini.timeout_seconds", 20)
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.burst", 40)
	v.SetDefault("ratelimit.chat_messages_per_minute", 10)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.timeout_seconds", 30)

	v.SetDefault("jwt.cookie_secure", false)
	v.SetDefault("kafka.brokers", []string{})

	// keys without a real default still need to be known for env overrides
	for _, k := range []string{
		"mongo.uri", "redis.addr", "redis.password", "jwt.secret",
		"email.api_key", "email.sender_email", "email.support_inbox",
		"gemini.api_key", "s3.region", "s3.bucket", "s3.endpoint", "s3.public_base_url",
	} {
		v.SetDefault(k, "")
	}
}

// Load reads .env, an optional config file at CONFIG_PATH and the
// environment. Every key can be overridden as e.g. MONGO_URI or JWT_SECRET.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// comma separated lists arrive as a single element from the env
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.App.CORSOrigins = splitList(cfg.App.CORSOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.derive()
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) derive() {
	c.ReadTimeout = seconds(c.App.ReadTimeoutSec, 15)
	c.WriteTimeout = seconds(c.App.WriteTimeoutSec, 30)
	c.ShutdownTimeout = seconds(c.App.ShutdownSecond, 15)
	c.MongoTimeout = seconds(c.Mongo.TimeoutSec, 10)
	c.PopularTTL = seconds(c.Redis.PopularTTLSec, 300)
	c.GeminiTimeout = seconds(c.Gemini.TimeoutSec, 20)
	c.BreakerTimeout = seconds(c.Breaker.TimeoutSec, 30)
	if c.JWT.TTLHours <= 0 {
		c.JWT.TTLHours = 24
	}
	c.TokenTTL = time.Duration(c.JWT.TTLHours) * time.Hour
}

// KafkaEnabled reports whether notifications go through a broker.
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
