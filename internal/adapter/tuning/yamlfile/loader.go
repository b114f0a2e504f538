// Package yamlfile loads the tuning document from disk.
package yamlfile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"soulforge/internal/domain/outcome"
	"soulforge/internal/domain/tuning"

	"gopkg.in/yaml.v3"
)

// versionPrefixLen is how many hex characters of the document hash stand in
// for a missing version.
const versionPrefixLen = 12

// Load reads path. An empty path yields the built-in defaults.
func Load(path string) (tuning.Config, error) {
	if path == "" {
		cfg := tuning.Default()
		return cfg, outcome.ValidateConfig(&cfg)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tuning.Config{}, fmt.Errorf("read tuning file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return tuning.Config{}, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a document over tuning.Default, so sections the document
// omits keep their defaults. Unknown keys are rejected.
func Parse(data []byte) (tuning.Config, error) {
	cfg := tuning.Default()
	cfg.Version = ""

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return tuning.Config{}, fmt.Errorf("decode: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = ContentVersion(data)
	}
	cfg.Normalize()
	if err := outcome.ValidateConfig(&cfg); err != nil {
		return tuning.Config{}, err
	}
	return cfg, nil
}

// ContentVersion derives a config-version token from the raw document.
func ContentVersion(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])[:versionPrefixLen]
}
