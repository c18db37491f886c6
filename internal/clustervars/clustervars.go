// Package clustervars implements the cluster-variables contract of
// spec.md §6: a content-addressable hash of the rendered variables visible
// to a (service, component) pair, used by the runner's component-version
// emission rule and by plan's reconfigure-diff contract.
package clustervars

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/hashstructure"
	"gopkg.in/yaml.v3"
)

// ClusterVariables is the read-only contract consumed by internal/runner
// and internal/plan. Implementations must be safe for concurrent reads.
type ClusterVariables interface {
	// GetHash returns a content-addressable hash of the variables visible
	// to (service, component). component may be empty for a service-level
	// scope.
	GetHash(service, component string) (string, error)
}

// DirVariables is a ClusterVariables backed by a directory tree of YAML
// files: "<root>/<service>/vars.yml" for service-level variables, merged
// under "<root>/<service>/<component>/vars.yml" for component-level
// overrides.
type DirVariables struct {
	root string
}

// NewDirVariables returns a DirVariables rooted at root.
func NewDirVariables(root string) *DirVariables {
	return &DirVariables{root: root}
}

// GetHash loads and merges the applicable variable files and returns a
// structural hash of the result.
func (d *DirVariables) GetHash(service, component string) (string, error) {
	merged := make(map[string]interface{})

	if err := mergeVarsFile(merged, filepath.Join(d.root, service, "vars.yml")); err != nil {
		return "", err
	}
	if component != "" {
		if err := mergeVarsFile(merged, filepath.Join(d.root, service, component, "vars.yml")); err != nil {
			return "", err
		}
	}

	hash, err := hashstructure.Hash(merged, nil)
	if err != nil {
		return "", fmt.Errorf("hash variables for %s/%s: %w", service, component, err)
	}
	return fmt.Sprintf("%x", hash), nil
}

// mergeVarsFile reads path into dst if it exists, overwriting keys already
// present. A missing file is not an error: most components don't override
// every level.
func mergeVarsFile(dst map[string]interface{}, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var overlay map[string]interface{}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range overlay {
		dst[k] = v
	}
	return nil
}
