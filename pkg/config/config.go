package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edgeflare/pgrag/pkg/rag"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X github.com/edgeflare/pgrag/pkg/config.Version=..."
var Version = "dev"

// EnvPrefix prefixes environment overrides, e.g. PGRAG_EMBEDDING_MODEL.
const EnvPrefix = "PGRAG"

// Config holds application-wide configuration
type Config struct {
	Postgres   PGConfig           `mapstructure:"postgres"`
	Embedding  rag.ServiceConfig  `mapstructure:"embedding"`
	Generation rag.ServiceConfig  `mapstructure:"generation"`
	Store      rag.StoreConfig    `mapstructure:"store"`
	Pipeline   rag.PipelineConfig `mapstructure:"pipeline"`
	Server     ServerConfig       `mapstructure:"server"`
	// File is the config file that was read, if any
	File string `mapstructure:"-"`
}

type PGConfig struct {
	// ConnString, when set, is used as is and the discrete fields are ignored
	ConnString string `mapstructure:"connString"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Database   string `mapstructure:"database"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	SSLMode    string `mapstructure:"sslMode"`
}

type ServerConfig struct {
	ListenAddr  string `mapstructure:"listenAddr"`
	MetricsAddr string `mapstructure:"metricsAddr"`
	// CORSOrigins enables CORS for these origins; "*" allows any. Empty disables CORS.
	CORSOrigins []string `mapstructure:"corsOrigins"`
}

// DSN returns the connection string for the configured database.
func (c PGConfig) DSN() string {
	if c.ConnString != "" {
		return c.ConnString
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Default returns the configuration used when neither a file nor the environment override a key.
// It matches the local setup: PostgreSQL on 5432 and Ollama on 11434.
func Default() Config {
	return Config{
		Postgres: PGConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			User:     "postgres",
			Password: "postgres",
			SSLMode:  "disable",
		},
		Embedding:  rag.DefaultEmbedderConfig(),
		Generation: rag.DefaultGeneratorConfig(),
		Store:      rag.DefaultStoreConfig(),
		Pipeline:   rag.DefaultPipelineConfig(),
		Server: ServerConfig{
			ListenAddr:  ":8080",
			MetricsAddr: ":9100",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("postgres.connString", d.Postgres.ConnString)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.database", d.Postgres.Database)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.password", d.Postgres.Password)
	v.SetDefault("postgres.sslMode", d.Postgres.SSLMode)

	for key, svc := range map[string]rag.ServiceConfig{"embedding": d.Embedding, "generation": d.Generation} {
		v.SetDefault(key+".baseURL", svc.BaseURL)
		v.SetDefault(key+".path", svc.Path)
		v.SetDefault(key+".model", svc.Model)
		v.SetDefault(key+".apiKey", svc.APIKey)
		v.SetDefault(key+".timeout", svc.Timeout)
		v.SetDefault(key+".retries", svc.Retries)
	}

	v.SetDefault("store.table", d.Store.Table)
	v.SetDefault("store.dimensions", d.Store.Dimensions)
	v.SetDefault("store.batchSize", d.Store.BatchSize)
	v.SetDefault("store.createIndex", d.Store.CreateIndex)

	v.SetDefault("pipeline.topK", d.Pipeline.TopK)
	v.SetDefault("pipeline.instruction", d.Pipeline.Instruction)

	v.SetDefault("server.listenAddr", d.Server.ListenAddr)
	v.SetDefault("server.metricsAddr", d.Server.MetricsAddr)
	v.SetDefault("server.corsOrigins", d.Server.CORSOrigins)
}

// Load reads config from file or environment. Without cfgFile it looks for
// pgrag.yaml in $HOME/.config and the working directory; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pgrag")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that would only fail later, at the first request.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("store.dimensions must be positive, got %d", c.Store.Dimensions))
	}
	if c.Pipeline.TopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.topK must be positive, got %d", c.Pipeline.TopK))
	}
	if c.Embedding.BaseURL == "" || c.Generation.BaseURL == "" {
		errs = append(errs, errors.New("embedding.baseURL and generation.baseURL are required"))
	}
	if c.Store.Table == "" {
		errs = append(errs, errors.New("store.table is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
