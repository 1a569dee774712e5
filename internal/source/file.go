// Package source provides the policy and role sources the loader reads:
// local files, S3 objects, and YAML role definitions.
package source

import (
	"context"
	"fmt"
	"os"
)

// FilePolicySource reads the policy text from a local file on every call, so
// edits are picked up by the next reload without a restart.
type FilePolicySource struct {
	path string
}

// NewFilePolicySource creates a policy source for the given file path.
func NewFilePolicySource(path string) *FilePolicySource {
	return &FilePolicySource{path: path}
}

// Read returns the current policy text.
func (s *FilePolicySource) Read(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return "", fmt.Errorf("read policy file %s: %w", s.path, err)
	}
	return string(data), nil
}
