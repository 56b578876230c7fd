// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package repair

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/archive-verify/internal/verify"
	"github.com/pdiddy/archive-verify/pkg/types"
)

// mockBackend returns a fixed answer and records the prompts it received.
type mockBackend struct {
	answer string
	err    error
	calls  int
	system string
	user   string
}

func (m *mockBackend) Complete(_ context.Context, system, user string) (string, error) {
	m.calls++
	m.system = system
	m.user = user
	return m.answer, m.err
}

// mapVerifier answers from a table; unknown ids are Fake.
type mapVerifier struct {
	results map[string]verify.Result
	seen    []string
}

func (m *mapVerifier) Verify(_ context.Context, id string) verify.Result {
	m.seen = append(m.seen, id)
	if r, ok := m.results[id]; ok {
		return r
	}
	return verify.Result{Status: types.StatusFake, Details: types.Details{Message: "not found"}}
}

func fakeRecord() types.Record {
	return types.Record{
		Title:      "Hallucinated Title About Grippers",
		Authors:    "A. Person; B. Person",
		Identifier: "10.9999/fake",
		Category:   "Soft Robotics",
		SourceFile: "papers_2025-01-01.md",
		Status:     types.StatusFake,
	}
}

func TestRepair_CleansAnswer(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
		wantOK bool
	}{
		{"bare", "10.1000/real", "10.1000/real", true},
		{"trailing period", "10.1000/real.", "10.1000/real", true},
		{"doi label", "DOI: 10.1000/real", "10.1000/real", true},
		{"lower label", "doi:10.1000/real", "10.1000/real", true},
		{"resolver url", "https://doi.org/10.1000/real", "10.1000/real", true},
		{"backticks", "`10.1000/real`", "10.1000/real", true},
		{"surrounding whitespace", "  10.1000/real\n", "10.1000/real", true},
		{"sentinel", "NOT FOUND", "", false},
		{"sentinel lowercase", "not found", "", false},
		{"too short", "10.1", "", false},
		{"sentence", "The DOI is 10.1000/real", "", false},
		{"empty", "", "", false},
		{"placeholder", "[unknown]", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&mockBackend{answer: tt.answer}, &mapVerifier{})
			got, ok := r.Repair(context.Background(), fakeRecord())
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepair_PromptCarriesTitleAndAuthors(t *testing.T) {
	b := &mockBackend{answer: "10.1000/real"}
	r := New(b, &mapVerifier{})

	_, ok := r.Repair(context.Background(), fakeRecord())
	require.True(t, ok)
	assert.Contains(t, b.user, "Hallucinated Title About Grippers")
	assert.Contains(t, b.user, "A. Person; B. Person")
	assert.Contains(t, b.user, NotFound)
	assert.Contains(t, b.system, "only output the DOI")
}

func TestRepair_SkipsNonRemovableStatuses(t *testing.T) {
	for _, st := range []types.Status{types.StatusVerified, types.StatusPreprint, types.StatusError, ""} {
		b := &mockBackend{answer: "10.1000/real"}
		rec := fakeRecord()
		rec.Status = st

		_, ok := New(b, &mapVerifier{}).Repair(context.Background(), rec)
		assert.False(t, ok, "status %q", st)
		assert.Zero(t, b.calls, "status %q must not reach the lookup service", st)
	}
}

func TestRepair_DisabledWithoutBackend(t *testing.T) {
	r := New(nil, &mapVerifier{})
	assert.False(t, r.Enabled())

	_, ok := r.Repair(context.Background(), fakeRecord())
	assert.False(t, ok)

	var nilResolver *Resolver
	assert.False(t, nilResolver.Enabled())
}

func TestRepair_BackendErrorIsFailure(t *testing.T) {
	r := New(&mockBackend{err: errors.New("boom")}, &mapVerifier{})
	_, ok := r.Repair(context.Background(), fakeRecord())
	assert.False(t, ok)
}

func TestRepair_SameIdentifierIsFailure(t *testing.T) {
	r := New(&mockBackend{answer: "10.9999/FAKE"}, &mapVerifier{})
	_, ok := r.Repair(context.Background(), fakeRecord())
	assert.False(t, ok)
}

func TestApply_AdoptsRegistryMetadata(t *testing.T) {
	v := &mapVerifier{results: map[string]verify.Result{
		"10.1000/real": {
			Status: types.StatusVerified,
			Details: types.Details{
				RegistryTitle:   "Soft Grippers: A Review",
				RegistryAuthors: []string{"Carol White", "Dave Brown"},
			},
		},
	}}
	r := New(&mockBackend{answer: "10.1000/real"}, v)

	rec := fakeRecord()
	require.True(t, r.Apply(context.Background(), &rec))

	assert.Equal(t, types.StatusVerified, rec.Status)
	assert.True(t, rec.Repaired)
	assert.Equal(t, "10.1000/real", rec.Identifier)
	assert.Equal(t, "10.9999/fake", rec.OriginalIdentifier)
	assert.Equal(t, "Soft Grippers: A Review", rec.Title)
	assert.Equal(t, "Carol White, Dave Brown", rec.Authors)
	assert.Equal(t, "Soft Robotics", rec.Category)
	assert.Equal(t, []string{"10.1000/real"}, v.seen)
}

func TestApply_KeepsFieldsWhenRegistryHasNone(t *testing.T) {
	v := &mapVerifier{results: map[string]verify.Result{
		"10.1000/bare": {Status: types.StatusVerified},
	}}
	rec := fakeRecord()
	require.True(t, New(&mockBackend{answer: "10.1000/bare"}, v).Apply(context.Background(), &rec))
	assert.Equal(t, "Hallucinated Title About Grippers", rec.Title)
	assert.Equal(t, "A. Person; B. Person", rec.Authors)
}

func TestApply_UnverifiedCandidateLeavesRecord(t *testing.T) {
	for _, st := range []types.Status{types.StatusFake, types.StatusError, types.StatusPreprint} {
		v := &mapVerifier{results: map[string]verify.Result{"10.1000/cand": {Status: st}}}
		rec := fakeRecord()
		before := rec

		assert.False(t, New(&mockBackend{answer: "10.1000/cand"}, v).Apply(context.Background(), &rec))
		assert.Equal(t, before, rec, "status %s", st)
	}
}

func TestApply_InvalidRecordCanBeRepaired(t *testing.T) {
	v := &mapVerifier{results: map[string]verify.Result{
		"10.1000/found": {Status: types.StatusVerified, Details: types.Details{RegistryTitle: "Found"}},
	}}
	rec := fakeRecord()
	rec.Identifier = ""
	rec.Status = types.StatusInvalid

	require.True(t, New(&mockBackend{answer: "10.1000/found"}, v).Apply(context.Background(), &rec))
	assert.Equal(t, "10.1000/found", rec.Identifier)
	assert.Equal(t, "Found", rec.Title)
}

func TestChatBackend_Complete(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"sonar-pro",
			"choices":[{"index":0,"message":{"role":"assistant","content":"10.1000/real"},"finish_reason":"stop"}]}`))
	}))
	defer ts.Close()

	b := NewChatBackend(types.RepairConfig{AIConfig: types.AIConfig{APIKey: "pplx-test", BaseURL: ts.URL, Model: "sonar-pro"}})
	require.NotNil(t, b)

	answer, err := b.Complete(context.Background(), "sys", "user msg")
	require.NoError(t, err)
	assert.Equal(t, "10.1000/real", answer)
	assert.Equal(t, "Bearer pplx-test", auth)
	assert.Equal(t, "sonar-pro", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user msg", got.Messages[1].Content)
}

func TestChatBackend_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer ts.Close()

	b := NewChatBackend(types.RepairConfig{AIConfig: types.AIConfig{APIKey: "k", BaseURL: ts.URL}})
	_, err := b.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "401") || strings.Contains(err.Error(), "bad key"), err.Error())
}

func TestNewChatBackend_NilWithoutKey(t *testing.T) {
	assert.Nil(t, NewChatBackend(types.RepairConfig{}))
	assert.Nil(t, NewChatBackend(types.RepairConfig{AIConfig: types.AIConfig{APIKey: "k"}, Disabled: true}))
}
