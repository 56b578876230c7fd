// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/archive-verify/internal/ledger"
	"github.com/pdiddy/archive-verify/internal/pipeline"
	"github.com/pdiddy/archive-verify/internal/repair"
	"github.com/pdiddy/archive-verify/internal/verify"
	"github.com/pdiddy/archive-verify/pkg/types"
)

// defaultHint returns the built-in default for a config key, for flag help.
func defaultHint(key string) string {
	d := types.DefaultPipelineConfig()
	switch key {
	case "archive_dir":
		return d.ArchiveDir
	case "file_pattern":
		return d.FilePattern
	case "ledger_path":
		return d.LedgerPath
	case "report_path":
		return d.ReportPath
	}
	return ""
}

// loadConfig layers, lowest first: built-in defaults, the config file and
// ARCHIVE_VERIFY_* environment (both via viper), then command flags.
func loadConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	setString(&cfg.ArchiveDir, "archive_dir")
	setString(&cfg.FilePattern, "file_pattern")
	setString(&cfg.ReportPath, "report_path")
	setString(&cfg.LedgerPath, "ledger_path")

	setString(&cfg.Verify.BaseURL, "verify.base_url")
	setString(&cfg.Verify.Mailto, "verify.mailto")
	setString(&cfg.Verify.UserAgent, "verify.user_agent")
	setDuration(&cfg.Verify.Timeout, "verify.timeout")
	setDuration(&cfg.Verify.Delay, "verify.delay")
	if viper.IsSet("verify.max_retries") {
		cfg.Verify.MaxRetries = viper.GetInt("verify.max_retries")
	}

	setString(&cfg.Repair.Model, "repair.model")
	setString(&cfg.Repair.BaseURL, "repair.base_url")
	setDuration(&cfg.Repair.Timeout, "repair.timeout")
	if viper.IsSet("repair.min_length") {
		cfg.Repair.MinLength = viper.GetInt("repair.min_length")
	}
	cfg.Repair.Disabled = viper.GetBool("repair.disabled")

	flags := cmd.Flags()
	if f := flags.Lookup("report"); f != nil && f.Changed {
		cfg.ReportPath = f.Value.String()
	}
	if f := flags.Lookup("dry-run"); f != nil && f.Changed {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if f := flags.Lookup("delay"); f != nil && f.Changed {
		cfg.Verify.Delay, _ = flags.GetDuration("delay")
	}
	if f := flags.Lookup("timeout"); f != nil && f.Changed {
		cfg.Verify.Timeout, _ = flags.GetDuration("timeout")
	}

	if cfg.Verify.Mailto == "" {
		cfg.Verify.Mailto = creds.CrossRefMailto
	}
	key, _ := cmd.Flags().GetString("pplx-key")
	if key == "" {
		key = creds.PerplexityKey
	}
	cfg.Repair.APIKey = key
	return cfg
}

func setString(dst *string, key string) {
	if v := viper.GetString(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if viper.IsSet(key) {
		if v := viper.GetDuration(key); v > 0 {
			*dst = v
		}
	}
}

// newVerifier builds the registry verifier for cfg.
func newVerifier(cfg types.PipelineConfig) *verify.Verifier {
	return verify.New(cfg.Verify, verify.WithLogger(logger.Named("verify")))
}

// newRepairer returns the resolver, or nil with a warning when no
// credential is configured.
func newRepairer(cfg types.PipelineConfig, v *verify.Verifier) pipeline.Repairer {
	backend := repair.NewChatBackend(cfg.Repair)
	if backend == nil {
		if !cfg.Repair.Disabled {
			fmt.Fprintln(os.Stderr, "warning: no repair lookup key found; identifier repair is disabled")
		}
		return nil
	}
	return repair.New(backend, v,
		repair.WithLogger(logger.Named("repair")),
		repair.WithMinLength(cfg.Repair.MinLength),
	)
}

// buildPipeline wires the pipeline for cfg. The returned close function
// releases the ledger.
func buildPipeline(cfg types.PipelineConfig) (*pipeline.Pipeline, func(), error) {
	v := newVerifier(cfg)
	opts := []pipeline.Option{
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithOutput(os.Stdout),
	}

	closeFn := func() {}
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return nil, closeFn, err
		}
		opts = append(opts, pipeline.WithLedger(l))
		closeFn = func() {
			if err := l.Close(); err != nil {
				logger.Warn("closing ledger", zap.Error(err))
			}
		}
	}

	return pipeline.New(cfg, v, newRepairer(cfg, v), opts...), closeFn, nil
}
