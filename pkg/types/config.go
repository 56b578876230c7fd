package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds a single request, not the whole run.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// VerifyConfig holds settings for the registry verifier.
type VerifyConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the works-by-identifier endpoint; the identifier is appended.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Mailto is the operator contact sent in the User-Agent so the registry
	// can reach whoever runs the verifier.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty"`

	// Delay is the minimum spacing between two registry lookups.
	Delay time.Duration `json:"delay" yaml:"delay"`

	// MaxRetries is the number of retries on HTTP 429 before giving up.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AIConfig holds shared settings for stages that call a chat-completion API.
type AIConfig struct {
	// Model is the model identifier (e.g. "sonar-pro").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key. Empty disables the stage.
	APIKey string `json:"-" yaml:"-"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// RepairConfig holds settings for the repair resolver.
type RepairConfig struct {
	AIConfig `yaml:",inline"`

	// Timeout bounds one lookup request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MinLength is the shortest answer accepted as an identifier.
	MinLength int `json:"min_length" yaml:"min_length"`

	// Disabled turns repair off even when a key is present.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// Enabled reports whether the resolver can run.
func (c RepairConfig) Enabled() bool {
	return !c.Disabled && c.APIKey != ""
}

// PipelineConfig groups the stage configurations for one run.
type PipelineConfig struct {
	// ArchiveDir holds the archive files.
	ArchiveDir string `json:"archive_dir" yaml:"archive_dir"`

	// FilePattern selects archive files inside ArchiveDir (filepath.Match syntax).
	FilePattern string `json:"file_pattern" yaml:"file_pattern"`

	// ReportPath is where the JSON run report is written. Empty skips it.
	ReportPath string `json:"report_path" yaml:"report_path"`

	// LedgerPath is the SQLite database of records awaiting re-check.
	// Empty disables the ledger.
	LedgerPath string `json:"ledger_path" yaml:"ledger_path"`

	// DryRun classifies records without rewriting archives.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	Verify VerifyConfig `json:"verify" yaml:"verify"`
	Repair RepairConfig `json:"repair" yaml:"repair"`
}

// Defaults used when the config file and flags leave a value unset.
const (
	DefaultArchiveDir      = "src/archive"
	DefaultFilePattern     = "papers_*.md"
	DefaultReportPath      = "doi_verification_report.json"
	DefaultLedgerPath      = ".archive-verify/recheck.db"
	DefaultRegistryBaseURL = "https://api.crossref.org/works/"
	DefaultVerifyTimeout   = 15 * time.Second
	DefaultVerifyDelay     = 300 * time.Millisecond
	DefaultMaxRetries      = 3
	DefaultRepairModel     = "sonar-pro"
	DefaultRepairBaseURL   = "https://api.perplexity.ai"
	DefaultRepairTimeout   = 60 * time.Second
	DefaultMinLength       = 5
	DefaultUserAgent       = "archive-verify/0.1"
)

// DefaultPipelineConfig returns a config with every default applied.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ArchiveDir:  DefaultArchiveDir,
		FilePattern: DefaultFilePattern,
		ReportPath:  DefaultReportPath,
		LedgerPath:  DefaultLedgerPath,
		Verify: VerifyConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   DefaultVerifyTimeout,
				UserAgent: DefaultUserAgent,
			},
			BaseURL:    DefaultRegistryBaseURL,
			Delay:      DefaultVerifyDelay,
			MaxRetries: DefaultMaxRetries,
		},
		Repair: RepairConfig{
			AIConfig: AIConfig{
				Model:   DefaultRepairModel,
				BaseURL: DefaultRepairBaseURL,
			},
			Timeout:   DefaultRepairTimeout,
			MinLength: DefaultMinLength,
		},
	}
}
