package config

import (
	"errors"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	Media    MediaConfig
	Worker   WorkerConfig
	Encoder  EncoderConfig
	Logger   Logger
}

type ServerConfig struct {
	AppVersion string
	Port       string
	Mode       string
	BaseURL    string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	PgDriver string
}

type RedisConfig struct {
	RedisAddr          string
	RedisPassword      string
	DB                 int
	MinIdleConns       int
	PoolSize           int
	PoolTimeout        int
	StatusCacheSeconds int
}

type MediaConfig struct {
	ImageTempDir      string
	VideoTempDir      string
	ImageDir          string
	VideoDir          string
	ImageMaxFields    int
	ImageMaxFileSize  int64
	ImageMaxTotalSize int64
	VideoMaxFileSize  int64
	JPEGQuality       int
	StreamChunkSize   int64
}

type WorkerConfig struct {
	QueueSize      int
	MaxRetries     int
	RetryBackoffMs int
	MaxCPUUsage    float64
}

type EncoderConfig struct {
	FFmpegBin      string
	FFprobeBin     string
	SegmentSeconds int
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
