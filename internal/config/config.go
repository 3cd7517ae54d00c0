package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Lake      LakeConfig      `yaml:"lake" mapstructure:"lake"`
	Generate  GenerateConfig  `yaml:"generate" mapstructure:"generate"`
	Dashboard DashboardConfig `yaml:"dashboard" mapstructure:"dashboard"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Warehouse WarehouseConfig `yaml:"warehouse" mapstructure:"warehouse"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// LakeConfig locates the bronze/silver/gold layers. The layer dirs are
// relative to Root unless absolute.
type LakeConfig struct {
	Root      string `yaml:"root" mapstructure:"root"`
	BronzeDir string `yaml:"bronze_dir" mapstructure:"bronze_dir"`
	SilverDir string `yaml:"silver_dir" mapstructure:"silver_dir"`
	GoldDir   string `yaml:"gold_dir" mapstructure:"gold_dir"`
	// Mappings optionally points at a YAML file replacing the built-in
	// raw schema mappings.
	Mappings string `yaml:"mappings" mapstructure:"mappings"`
}

// GenerateConfig configures the synthetic bronze data generator.
type GenerateConfig struct {
	Files        int    `yaml:"files" mapstructure:"files"` // 0 = random in [2,15]
	Seed         uint64 `yaml:"seed" mapstructure:"seed"`   // 0 = time based
	MixedSchemas bool   `yaml:"mixed_schemas" mapstructure:"mixed_schemas"`
}

// DashboardConfig configures chart rendering.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	TopN    int  `yaml:"top_n" mapstructure:"top_n"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// WarehouseConfig configures optional publication of gold tables to Postgres.
type WarehouseConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	// RetryAttempts bounds publish attempts on transient database errors.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoff  int `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// ServerConfig configures the read-only gold API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MEDALLION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("lake.root", ".")
	v.SetDefault("lake.bronze_dir", "bronze")
	v.SetDefault("lake.silver_dir", "silver")
	v.SetDefault("lake.gold_dir", "gold")
	v.SetDefault("lake.mappings", "")
	v.SetDefault("generate.files", 0)
	v.SetDefault("generate.seed", 0)
	v.SetDefault("generate.mixed_schemas", false)
	v.SetDefault("dashboard.enabled", true)
	v.SetDefault("dashboard.top_n", 20)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("warehouse.database_url", "")
	v.SetDefault("warehouse.schema", "gold")
	v.SetDefault("warehouse.retry_attempts", 3)
	v.SetDefault("warehouse.retry_backoff_ms", 250)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Validate checks the settings a command mode depends on. Every problem is
// reported, not just the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	if strings.TrimSpace(c.Lake.Root) == "" {
		problems = append(problems, "lake.root is required")
	}
	for key, dir := range map[string]string{
		"lake.bronze_dir": c.Lake.BronzeDir,
		"lake.silver_dir": c.Lake.SilverDir,
		"lake.gold_dir":   c.Lake.GoldDir,
	} {
		if strings.TrimSpace(dir) == "" {
			problems = append(problems, key+" is required")
		}
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required for the postgres driver")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
	case "publish":
		if c.Warehouse.DatabaseURL == "" {
			problems = append(problems, "warehouse.database_url is required")
		}
		if c.Warehouse.RetryAttempts < 0 {
			problems = append(problems, "warehouse.retry_attempts must not be negative")
		}
	case "generate":
		if c.Generate.Files < 0 {
			problems = append(problems, "generate.files must not be negative")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
