// Package member defines the read-only Member Directory consumed by billing.
package member

import (
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Member is an association member as known to the external directory.
type Member struct {
	ID     string `json:"id" yaml:"id"`
	Active bool   `json:"active" yaml:"active"`
}

// Directory lists members. Implementations must be safe for concurrent use.
type Directory interface {
	List(ctx context.Context) ([]Member, error)
}

// DirectoryFunc adapts a function to Directory.
type DirectoryFunc func(ctx context.Context) ([]Member, error)

// List implements Directory.
func (f DirectoryFunc) List(ctx context.Context) ([]Member, error) { return f(ctx) }

// Static is a fixed in-memory directory.
type Static []Member

// List implements Directory.
func (s Static) List(_ context.Context) ([]Member, error) {
	return slices.Clone(s), nil
}

// Active returns the active members with a non-empty ID, first occurrence
// wins on duplicate IDs. Order is preserved.
func Active(members []Member) []Member {
	seen := make(map[string]struct{}, len(members))
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if !m.Active || m.ID == "" {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// FileDirectory reads members from a YAML file on every List call:
//
//	members:
//	  - id: unit-101
//	    active: true
type FileDirectory struct {
	Path string
}

type fileDoc struct {
	Members []Member `yaml:"members"`
}

// List implements Directory.
func (f FileDirectory) List(_ context.Context) ([]Member, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("member: read %s: %w", f.Path, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("member: parse %s: %w", f.Path, err)
	}
	return doc.Members, nil
}
