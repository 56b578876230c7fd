// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify classifies identifiers against the CrossRef works registry.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/archive-verify/internal/doi"
	"github.com/pdiddy/archive-verify/internal/httputil"
	"github.com/pdiddy/archive-verify/pkg/types"
)

const (
	// maxTitleLen bounds the registry title carried in verification details.
	maxTitleLen = 100

	// maxAuthors is the number of registry authors carried in details.
	maxAuthors = 3
)

// Result is the classification of one identifier.
type Result struct {
	Status  types.Status
	Details types.Details
}

// Work is the subset of a CrossRef work used for verification.
type Work struct {
	Title   string
	Authors []string
}

// crossrefResponse mirrors the CrossRef works-by-DOI JSON envelope.
type crossrefResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	Title  []string         `json:"title"`
	Author []crossrefAuthor `json:"author"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

// Verifier issues rate-limited registry lookups. After each lookup
// completes, the next one waits at least the configured delay.
type Verifier struct {
	client *http.Client
	delay  time.Duration

	mu      sync.Mutex
	limiter *rate.Limiter

	baseURL    string
	userAgent  string
	maxRetries int
	logger     *zap.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithHTTPClient sets a custom HTTP client. The client's Timeout bounds each lookup.
func WithHTTPClient(hc *http.Client) Option {
	return func(v *Verifier) {
		v.client = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// New creates a Verifier from cfg.
func New(cfg types.VerifyConfig, opts ...Option) *Verifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = types.DefaultVerifyTimeout
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = types.DefaultRegistryBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	v := &Verifier{
		client:     &http.Client{Timeout: timeout},
		delay:      cfg.Delay,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		baseURL:    baseURL,
		userAgent:  userAgent(cfg),
		maxRetries: cfg.MaxRetries,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// userAgent builds the descriptive client identifier the registry asks for.
func userAgent(cfg types.VerifyConfig) string {
	ua := cfg.UserAgent
	if ua == "" {
		ua = types.DefaultUserAgent
	}
	if cfg.Mailto != "" {
		ua += " (mailto:" + cfg.Mailto + ")"
	}
	return ua
}

// Verify classifies id. It never returns an error: an empty id is Invalid,
// a preprint id is Preprint without a lookup, a 404 is Fake, and any other
// failure is Error with a readable cause.
func (v *Verifier) Verify(ctx context.Context, id string) Result {
	if strings.TrimSpace(id) == "" {
		return Result{Status: types.StatusInvalid, Details: types.Details{Message: "Empty DOI"}}
	}
	if doi.IsPreprint(id) {
		return Result{Status: types.StatusPreprint, Details: types.Details{Message: "Preprint - not verified"}}
	}

	work, err := v.Lookup(ctx, id)
	switch {
	case err == nil:
		return Result{
			Status: types.StatusVerified,
			Details: types.Details{
				RegistryTitle:   work.Title,
				RegistryAuthors: work.Authors,
			},
		}
	case IsNotFound(err):
		return Result{Status: types.StatusFake, Details: types.Details{Message: ErrNotFound.Error()}}
	default:
		v.logger.Warn("registry lookup inconclusive", zap.String("doi", id), zap.Error(err))
		return Result{Status: types.StatusError, Details: types.Details{Message: describe(err)}}
	}
}

// Lookup fetches the work for id from the registry. It first waits out the
// delay opened by the previous lookup, measured from when that lookup
// finished.
func (v *Verifier) Lookup(ctx context.Context, id string) (*Work, error) {
	v.mu.Lock()
	limiter := v.limiter
	v.mu.Unlock()
	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	defer v.settle()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+escapePath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", v.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, v.client, req, v.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	v.logger.Debug("registry lookup",
		zap.String("doi", id),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	w := &Work{Authors: []string{}}
	if len(cr.Message.Title) > 0 {
		w.Title = truncate(strings.TrimSpace(cr.Message.Title[0]), maxTitleLen)
	}
	for _, a := range cr.Message.Author {
		if len(w.Authors) == maxAuthors {
			break
		}
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name == "" {
			name = strings.TrimSpace(a.Name)
		}
		if name != "" {
			w.Authors = append(w.Authors, name)
		}
	}
	return w, nil
}

// settle starts a fresh delay window at the current time. The new limiter's
// only token is taken at once, so the next Wait blocks a full delay.
func (v *Verifier) settle() {
	if v.delay <= 0 {
		return
	}
	l := rate.NewLimiter(rate.Every(v.delay), 1)
	l.Allow()
	v.mu.Lock()
	v.limiter = l
	v.mu.Unlock()
}

// escapePath escapes each "/"-separated segment of a DOI so reserved
// characters ("?", "#", spaces) cannot alter the request URL.
func escapePath(id string) string {
	parts := strings.Split(id, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// describe turns a lookup error into the message stored on the record.
func describe(err error) string {
	var httpErr *HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: " + err.Error()
	case errors.As(err, &httpErr) && !errors.Is(err, ErrRateLimited):
		return httpErr.Error()
	default:
		return err.Error()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
