// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the archive-verify CLI.
//
// archive-verify checks every bibliographic record in a directory of
// markdown archives against the CrossRef registry, repairs hallucinated
// identifiers through a lookup service when a credential is available,
// and rewrites each archive so it holds only records that passed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/archive-verify/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// creds holds the credentials found in .secrets/ and the environment.
	creds secrets.Credentials

	// logger is built in PersistentPreRunE and shared by all subcommands.
	logger = zap.NewNop()

	verbose bool
)

// pplxEnvKey is read from the environment, after .env is loaded, when no
// other source supplies a repair credential.
const pplxEnvKey = "PPLX_API_KEY"

var rootCmd = &cobra.Command{
	Use:   "archive-verify",
	Short: "Verify and clean bibliographic archives against CrossRef",
	Long: `archive-verify parses markdown paper archives, verifies each record's DOI
against the CrossRef registry, tries to repair records whose DOI does not exist,
and rewrites each archive with only the records that passed.

Records whose lookup was inconclusive are kept under "Needs Re-check" and
retried on the next run; they are never removed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}

		dir := viper.GetString("secrets_dir")
		fromDir, err := secrets.LoadCredentials(dir)
		if err != nil {
			return err
		}

		// .env is optional; a missing file is not an error.
		_ = godotenv.Load()
		creds = fromDir.Merge(secrets.Credentials{PerplexityKey: os.Getenv(pplxEnvKey)})

		if fromDir.HasRepair() || fromDir.CrossRefMailto != "" {
			logger.Debug("loaded secrets", zap.String("dir", dir))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./archive-verify.yaml or ~/.config/archive-verify/archive-verify.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.String("archive-dir", "", "directory holding archive files (default "+defaultHint("archive_dir")+")")
	pf.String("pattern", "", "archive file name pattern (default "+defaultHint("file_pattern")+")")
	pf.String("ledger", "", "re-check ledger database (default "+defaultHint("ledger_path")+")")
	pf.String("mailto", "", "contact address sent to CrossRef")
	pf.String("secrets-dir", ".secrets/", "directory of credential files")
	pf.String("pplx-key", "", "repair lookup service API key (overrides .secrets/ and "+pplxEnvKey+")")
	pf.Bool("no-repair", false, "disable identifier repair")

	for key, flag := range map[string]string{
		"archive_dir":     "archive-dir",
		"file_pattern":    "pattern",
		"ledger_path":     "ledger",
		"verify.mailto":   "mailto",
		"secrets_dir":     "secrets-dir",
		"repair.disabled": "no-repair",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("archive-verify")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "archive-verify"))
		}
	}

	viper.SetEnvPrefix("ARCHIVE_VERIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds a console logger on stderr. Progress output goes to
// stdout, so the default level keeps the log quiet.
func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
