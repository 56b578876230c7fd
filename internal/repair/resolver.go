// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package repair asks an external knowledge-lookup service for a corrected
// identifier when a record fails verification, then re-verifies it.
package repair

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/archive-verify/internal/doi"
	"github.com/pdiddy/archive-verify/internal/verify"
	"github.com/pdiddy/archive-verify/pkg/types"
)

// NotFound is the sentinel the lookup service is told to answer with.
const NotFound = "NOT FOUND"

// systemPrompt restricts the lookup service to a bare identifier.
const systemPrompt = "You are a helpful research assistant. You only output the DOI and nothing else. No markdown, no text."

// Backend abstracts the lookup service so tests can supply a mock.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Verifier re-checks a candidate identifier.
type Verifier interface {
	Verify(ctx context.Context, id string) verify.Result
}

// Resolver repairs Fake and Invalid records. A Resolver with a nil backend
// is disabled and never contacts anything.
type Resolver struct {
	backend   Backend
	verifier  Verifier
	minLength int
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithMinLength sets the shortest answer accepted as an identifier.
func WithMinLength(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.minLength = n
		}
	}
}

// New creates a Resolver. backend may be nil to disable repair.
func New(backend Backend, v Verifier, opts ...Option) *Resolver {
	r := &Resolver{
		backend:   backend,
		verifier:  v,
		minLength: types.DefaultMinLength,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Enabled reports whether the resolver has a lookup backend.
func (r *Resolver) Enabled() bool {
	return r != nil && r.backend != nil
}

// Repair asks the lookup service for a corrected identifier for rec. It
// returns false when the resolver is disabled, rec is not Fake or Invalid,
// the service fails, or the answer is not a plausible identifier.
func (r *Resolver) Repair(ctx context.Context, rec types.Record) (string, bool) {
	if !r.Enabled() || !rec.Status.Removable() {
		return "", false
	}

	answer, err := r.backend.Complete(ctx, systemPrompt, Prompt(rec))
	if err != nil {
		r.logger.Warn("repair lookup failed", zap.String("title", rec.Title), zap.Error(err))
		return "", false
	}

	candidate, ok := r.clean(answer)
	if !ok {
		r.logger.Info("repair lookup found nothing", zap.String("title", rec.Title), zap.String("answer", answer))
		return "", false
	}
	if strings.EqualFold(candidate, rec.Identifier) {
		r.logger.Info("repair lookup returned the same identifier", zap.String("doi", candidate))
		return "", false
	}
	return candidate, true
}

// Apply repairs rec in place. On success rec carries the new identifier,
// Verified status, and the registry's title and authors when it supplied
// them; the previous identifier is kept in OriginalIdentifier. On failure
// rec is unchanged.
func (r *Resolver) Apply(ctx context.Context, rec *types.Record) bool {
	candidate, ok := r.Repair(ctx, *rec)
	if !ok {
		return false
	}

	res := r.verifier.Verify(ctx, candidate)
	if res.Status != types.StatusVerified {
		r.logger.Info("repair candidate did not verify",
			zap.String("doi", candidate),
			zap.String("status", string(res.Status)),
		)
		return false
	}

	rec.OriginalIdentifier = rec.Identifier
	rec.Identifier = candidate
	rec.Repaired = true
	rec.SetOutcome(res.Status, res.Details)
	if res.Details.RegistryTitle != "" {
		rec.Title = res.Details.RegistryTitle
	}
	if len(res.Details.RegistryAuthors) > 0 {
		rec.Authors = strings.Join(res.Details.RegistryAuthors, ", ")
	}
	r.logger.Info("record repaired",
		zap.String("from", rec.OriginalIdentifier),
		zap.String("to", rec.Identifier),
	)
	return true
}

// Prompt builds the user message for rec.
func Prompt(rec types.Record) string {
	return fmt.Sprintf(
		"Find the correct DOI for the research paper titled: %q by authors: %q. "+
			"Return ONLY the DOI string (e.g., 10.xxxx/yyyy). "+
			"If you cannot find the exact paper, return '%s'.",
		rec.Title, rec.Authors, NotFound,
	)
}

var doiLabel = regexp.MustCompile(`(?i)^doi:\s*`)

// clean post-processes a raw answer into a candidate identifier.
func (r *Resolver) clean(answer string) (string, bool) {
	s := strings.TrimSpace(answer)
	s = strings.Trim(s, "`\"'")
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSpace(doiLabel.ReplaceAllString(s, ""))

	if strings.Contains(strings.ToUpper(s), NotFound) {
		return "", false
	}
	if len(s) < r.minLength {
		return "", false
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", false
	}

	candidate := doi.Normalize(s)
	if candidate == "" {
		return "", false
	}
	return candidate, true
}
