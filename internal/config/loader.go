package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Registry RegistryConfig `mapstructure:"registry"`
	Packages PackagesConfig `mapstructure:"packages"`
	Tasks    TasksConfig    `mapstructure:"tasks"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Features FeaturesConfig `mapstructure:"features"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type RegistryConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// PackagesConfig carries the static classification lists. Names are
// matched lowercase.
type PackagesConfig struct {
	System      []string `mapstructure:"system"`
	Core        []string `mapstructure:"core"`
	AIModel     []string `mapstructure:"ai_model"`
	AppRequired []string `mapstructure:"app_required"`
}

type TasksConfig struct {
	ExpireAfter time.Duration `mapstructure:"expire_after"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetEnvPrefix("PIPDOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8282)

	viper.SetDefault("database.path", "config/pipdock.db")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.output_paths", []string{"stdout"})
	viper.SetDefault("logger.error_output_paths", []string{"stderr"})

	viper.SetDefault("registry.base_url", "https://pypi.org/pypi")
	viper.SetDefault("registry.timeout", 5*time.Second)
	viper.SetDefault("registry.cache_ttl", 24*time.Hour)

	viper.SetDefault("tasks.expire_after", 24*time.Hour)

	viper.SetDefault("packages.system", []string{
		"pip", "setuptools", "wheel", "flask", "flask-cors", "requests", "packaging",
	})
	viper.SetDefault("packages.core", []string{"numpy", "pandas"})
	viper.SetDefault("packages.ai_model", []string{"transformers"})
	viper.SetDefault("packages.app_required", []string{"flask", "flask-cors", "requests"})
}
