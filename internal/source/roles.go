package source

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aws/dcv-access-console-sub000/internal/domain"
)

// rolesFile is the YAML shape of the role definitions file:
//
//	roles:
//	  - name: Admin
//	    permissions: [viewSessions, deleteResource]
//	  - name: User
//	    permissions: [createSession]
type rolesFile struct {
	Roles []struct {
		Name        string   `yaml:"name"`
		Permissions []string `yaml:"permissions"`
	} `yaml:"roles"`
}

// YAMLRoleSource reads role definitions from a YAML file on every call.
type YAMLRoleSource struct {
	path string
}

// NewYAMLRoleSource creates a role source for the given file path.
func NewYAMLRoleSource(path string) *YAMLRoleSource {
	return &YAMLRoleSource{path: path}
}

// Roles returns the current role definitions. Roles without a name are
// rejected; an empty permission list is allowed and yields a role that
// grants nothing.
func (s *YAMLRoleSource) Roles(_ context.Context) ([]domain.RoleRecord, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // path is operator-controlled
	if err != nil {
		return nil, fmt.Errorf("read roles file %s: %w", s.path, err)
	}

	var parsed rolesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse roles file %s: %w", s.path, err)
	}

	roles := make([]domain.RoleRecord, 0, len(parsed.Roles))
	for i, r := range parsed.Roles {
		if r.Name == "" {
			return nil, fmt.Errorf("roles file %s: role %d has no name", s.path, i)
		}
		roles = append(roles, domain.RoleRecord{Name: r.Name, Permissions: r.Permissions})
	}
	return roles, nil
}
