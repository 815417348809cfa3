package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	RAWG     RAWGConfig     `mapstructure:"rawg"`
	Browse   BrowseConfig   `mapstructure:"browse"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	CORS            CORSConfig    `mapstructure:"cors"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver. A full URL
// wins over the individual postgres fields.
func (c DatabaseConfig) DSN() string {
	if c.Driver != "postgres" {
		return c.Path
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type BrowseConfig struct {
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
	MaxSessions int           `mapstructure:"max_sessions"`
	// WaitTimeout bounds how long a ?wait=true request blocks.
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

type CacheConfig struct {
	DetailTTL time.Duration `mapstructure:"detail_ttl"`
	SweepCron string        `mapstructure:"sweep_cron"`
}

// Load reads configuration from configPath, or from CONFIG_PATH, or from
// config.yaml in ./configs or the working directory. Environment variables
// override file values.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	_ = v.BindEnv("rawg.api_key", "RAWG_API_KEY")
	_ = v.BindEnv("rawg.base_url", "RAWG_BASE_URL")
	_ = v.BindEnv("database.driver", "DB_DRIVER")
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("database.password", "DB_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.RAWG.ResolveEnvVars()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/rawgdex.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "rawgdex")
	v.SetDefault("database.dbname", "rawgdex")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("rawg.base_url", "https://api.rawg.io/api")
	v.SetDefault("rawg.timeout", "15s")
	v.SetDefault("rawg.page_size", 20)
	v.SetDefault("rawg.rate_limit.rps", 5)
	v.SetDefault("rawg.rate_limit.burst", 10)

	v.SetDefault("browse.session_ttl", "30m")
	v.SetDefault("browse.max_sessions", 256)
	v.SetDefault("browse.wait_timeout", "20s")

	v.SetDefault("cache.detail_ttl", "24h")
	v.SetDefault("cache.sweep_cron", "*/5 * * * *")
}

// Validate checks value ranges and the sweep schedule.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "postgres":
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("database.url or database.host is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not sqlite or postgres", c.Database.Driver))
	}
	if err := c.RAWG.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Browse.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("browse.max_sessions must be positive, got %d", c.Browse.MaxSessions))
	}
	if c.Browse.SessionTTL <= 0 {
		errs = append(errs, errors.New("browse.session_ttl must be positive"))
	}
	if c.Browse.WaitTimeout <= 0 {
		errs = append(errs, errors.New("browse.wait_timeout must be positive"))
	}
	if c.Cache.DetailTTL < 0 {
		errs = append(errs, errors.New("cache.detail_ttl must not be negative"))
	}
	if !gronx.IsValid(c.Cache.SweepCron) {
		errs = append(errs, fmt.Errorf("cache.sweep_cron %q is not a valid cron expression", c.Cache.SweepCron))
	}

	return errors.Join(errs...)
}
