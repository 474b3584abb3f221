package pgrag

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgeflare/pgrag/pkg/config"
	mw "github.com/edgeflare/pgrag/pkg/httputil/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "pgrag",
	Short: "pgrag answers questions from documents stored in PostgreSQL",
	Long: `pgrag embeds documents with a local model server, stores them in a pgvector table
and answers queries with a language model, using the most similar documents as context.`,
	Version:       config.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if logger, err = newLogger(logLevel); err != nil {
			return err
		}
		zap.ReplaceGlobals(logger)
		mw.SetDefaultLogger(logger)

		if cfg, err = config.Load(cfgFile); err != nil {
			return err
		}
		if cfg.File != "" {
			logger.Debug("using config file", zap.String("file", cfg.File))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/pgrag.yaml)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "info", "log at this level (debug, info, warn, error, none)")
}

// newLogger builds the process logger. debug uses the human-readable development encoder.
func newLogger(level string) (*zap.Logger, error) {
	switch level {
	case "none":
		return zap.NewNop(), nil
	case "debug":
		return zap.NewDevelopment()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	return zapCfg.Build()
}
