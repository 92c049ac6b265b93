package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
}

type StorageConfig struct {
	Endpoint         string
	AccessKey        string
	SecretKey        string
	UseSSL           bool
	Region           string
	BucketStaging    string
	BucketQuarantine string
	BucketMedia      string
	BucketProfile    string
	BucketContent    string
	BucketMessage    string
	ReadURLTTL       time.Duration
	UploadURLTTL     time.Duration
}

type SecurityConfig struct {
	JWTSecret string
}

// ClassPolicy controls when a class queue flushes: at MaxBatch items, or
// once the oldest unflushed item has waited MaxWait. PollInterval bounds
// how long the queue sleeps between re-evaluations.
type ClassPolicy struct {
	MaxBatch     int
	MaxWait      time.Duration
	PollInterval time.Duration
}

type BatchingConfig struct {
	Images ClassPolicy
	Videos ClassPolicy
}

type ScanConfig struct {
	VisionEndpoint string
	RemoteEndpoint string
	APIKey         string
	SmallBatchMax  int
	RetryAttempts  int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

type SweepConfig struct {
	StalePendingAfter time.Duration
	AwaitingUploadTTL time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Batching         BatchingConfig
	Scan             ScanConfig
	Sweep            SweepConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("MEDIAVAULT")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "media:confirmed")
	v.SetDefault("redis.group", "mediavault-pipeline")
	v.SetDefault("redis.consumer", "mediavault-1")
	v.SetDefault("redis.claiminterval", "30s")

	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucketstaging", "mediavault-staging")
	v.SetDefault("storage.bucketquarantine", "mediavault-quarantine")
	v.SetDefault("storage.bucketmedia", "mediavault-media")
	v.SetDefault("storage.bucketprofile", "mediavault-profile")
	v.SetDefault("storage.bucketcontent", "mediavault-content")
	v.SetDefault("storage.bucketmessage", "mediavault-messages")
	v.SetDefault("storage.readurlttl", "10m")
	v.SetDefault("storage.uploadurlttl", "15m")

	v.SetDefault("batching.images.maxbatch", 50)
	v.SetDefault("batching.images.maxwait", "30s")
	v.SetDefault("batching.images.pollinterval", "5s")
	v.SetDefault("batching.videos.maxbatch", 10)
	v.SetDefault("batching.videos.maxwait", "2m")
	v.SetDefault("batching.videos.pollinterval", "10s")

	v.SetDefault("scan.smallbatchmax", 4)
	v.SetDefault("scan.retryattempts", 3)
	v.SetDefault("scan.retrydelay", "2s")
	v.SetDefault("scan.requesttimeout", "60s")

	v.SetDefault("sweep.stalependingafter", "1h")
	v.SetDefault("sweep.awaitinguploadttl", "24h")
}
