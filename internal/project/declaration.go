// Package project reads the optional PROJECT.toml declaration file at the
// repository root. The declaration supplies the project identity and branch
// defaults stamped onto ingested coverage reports.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// DeclarationFile is the default filename for the project declaration
const DeclarationFile = "PROJECT.toml"

// Declaration represents the contents of PROJECT.toml
type Declaration struct {
	// Name is the human-readable project name
	Name string `toml:"name"`

	// DefaultBranch is the branch reports default to when a payload
	// carries no branch metadata
	DefaultBranch string `toml:"default_branch,omitempty"`

	// Owner is the owner reference (e.g. @team-name or user@email.com)
	Owner string `toml:"owner,omitempty"`

	// Tags are classification tags for the project
	Tags []string `toml:"tags,omitempty"`
}

// Load parses PROJECT.toml from the repository root. A missing file is not
// an error; it returns (nil, nil).
func Load(repoRoot string) (*Declaration, error) {
	path := filepath.Join(repoRoot, DeclarationFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", DeclarationFile, err)
	}

	var decl Declaration
	if err := toml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", DeclarationFile, err)
	}

	if decl.Name == "" {
		return nil, fmt.Errorf("%s: name is required", DeclarationFile)
	}

	return &decl, nil
}

// Save writes the declaration to PROJECT.toml
func (d *Declaration) Save(repoRoot string) error {
	data, err := toml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(repoRoot, DeclarationFile), data, 0644)
}
