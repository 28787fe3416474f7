package verify

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// checkList is the on-disk shape of a verification check file.
type checkList struct {
	Checks []Check `yaml:"checks"`
}

// LoadChecks reads a YAML check list. Relative check dirs resolve against the
// file's own directory so the list can live next to the scripts it invokes.
func LoadChecks(path string) ([]Check, error) {
	cleanPath := filepath.Clean(path)

	// #nosec G304 -- path is provided by user configuration
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read checks file %s: %w", cleanPath, err)
	}

	var list checkList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse checks file: %w", err)
	}

	baseDir := filepath.Dir(cleanPath)
	names := make(map[string]bool)
	for i := range list.Checks {
		c := &list.Checks[i]
		if c.Name == "" {
			return nil, fmt.Errorf("check %d: name is required", i)
		}
		if names[c.Name] {
			return nil, fmt.Errorf("duplicate check name: %s", c.Name)
		}
		names[c.Name] = true
		if c.Command == "" {
			return nil, fmt.Errorf("check %s: command is required", c.Name)
		}
		if c.Dir != "" && !filepath.IsAbs(c.Dir) {
			c.Dir = filepath.Join(baseDir, c.Dir)
		}
	}
	return list.Checks, nil
}
