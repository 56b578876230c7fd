// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Recognized key files: pplx-api-key, crossref-mailto.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key file names.
const (
	PerplexityKeyFile  = "pplx-api-key"
	CrossRefMailtoFile = "crossref-mailto"
)

// Credentials are the optional external-service credentials. Each field is
// independently present or absent; callers degrade when one is missing.
type Credentials struct {
	// PerplexityKey enables the repair lookup service.
	PerplexityKey string

	// CrossRefMailto is the contact address sent to the registry.
	CrossRefMailto string
}

// HasRepair reports whether a repair lookup credential is present.
func (c Credentials) HasRepair() bool {
	return c.PerplexityKey != ""
}

// Merge returns c with empty fields filled from other.
func (c Credentials) Merge(other Credentials) Credentials {
	if c.PerplexityKey == "" {
		c.PerplexityKey = other.PerplexityKey
	}
	if c.CrossRefMailto == "" {
		c.CrossRefMailto = other.CrossRefMailto
	}
	return c
}

// FromMap picks the recognized keys out of a Load result.
func FromMap(m map[string]string) Credentials {
	return Credentials{
		PerplexityKey:  m[PerplexityKeyFile],
		CrossRefMailto: m[CrossRefMailtoFile],
	}
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadCredentials reads dir and returns the recognized credentials.
func LoadCredentials(dir string) (Credentials, error) {
	m, err := Load(dir)
	if err != nil {
		return Credentials{}, err
	}
	return FromMap(m), nil
}
