package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tosit-io/tdp/internal/depmodel"
	"github.com/tosit-io/tdp/internal/logger"
	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

// Load reads every *.yml/*.yaml file under each of paths (in order) and
// merges them into a single Collections. paths mirrors the CLI's
// colon-separated collection path list (spec.md §6); later paths may add
// operations but must not redeclare a name already seen.
func Load(ctx context.Context, log logger.Logger, paths []string) (*Collections, error) {
	if log == nil {
		log = logger.NewNoOp()
	}

	operations := make(map[string]Entry)
	edges := make(map[string][]string)

	for _, root := range paths {
		files, err := collectionFiles(root)
		if err != nil {
			return nil, err
		}
		for _, path := range files {
			if err := loadFile(path, operations, edges); err != nil {
				return nil, err
			}
		}
		log.Debug(ctx, "loaded collection path", "path", root, "operations", len(operations))
	}

	if len(operations) == 0 {
		return nil, tdperrors.NewValidationError("collections", "no operations found in the given collection paths", nil)
	}

	if err := validateEdges(operations, edges); err != nil {
		return nil, err
	}

	log.Info(ctx, "catalog loaded", "operations", len(operations))
	return &Collections{Operations: operations, explicitEdges: edges}, nil
}

func collectionFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yml" || ext == ".yaml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, tdperrors.NewParseError(root, 0, err)
	}
	sort.Strings(files)
	return files, nil
}

func loadFile(path string, operations map[string]Entry, edges map[string][]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return tdperrors.NewParseError(path, 0, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return tdperrors.NewParseError(path, 0, err)
	}

	v := validatorInstance()
	if err := v.Struct(&doc); err != nil {
		return convertValidationError(path, err)
	}

	for _, spec := range doc.Operations {
		if _, exists := operations[spec.Name]; exists {
			return tdperrors.NewValidationError(spec.Name, fmt.Sprintf("operation %q redeclared in %s", spec.Name, path), nil)
		}

		service, component, action, err := depmodel.ParseOperationName(spec.Name)
		if err != nil {
			return tdperrors.NewValidationError(spec.Name, err.Error(), err)
		}

		operations[spec.Name] = Entry{
			Name:      spec.Name,
			Service:   service,
			Component: component,
			Action:    action,
			Noop:      spec.Noop,
			HostNames: append([]string(nil), spec.HostNames...),
		}
		if len(spec.DependsOn) > 0 {
			edges[spec.Name] = append([]string(nil), spec.DependsOn...)
		}
	}

	return nil
}

// validateEdges rejects depends_on references to operations that don't
// exist anywhere in the merged catalog; a dangling edge here is a load-time
// authoring error distinct from internal/dag's InvalidDagError (which
// covers cycles and edges internal/dag derives on its own).
func validateEdges(operations map[string]Entry, edges map[string][]string) error {
	for name, deps := range edges {
		for _, dep := range deps {
			if _, ok := operations[dep]; !ok {
				return tdperrors.NewValidationError(name, fmt.Sprintf("depends_on references unknown operation %q", dep), nil)
			}
		}
	}
	return nil
}

// Operation returns an Operation view of the catalog entry, for consumers that
// want the runtime-facing depmodel shape (internal/dag, internal/plan).
func (e Entry) Operation() depmodel.Operation {
	return depmodel.Operation{
		Name:      e.Name,
		Service:   e.Service,
		Component: e.Component,
		Action:    e.Action,
		Noop:      e.Noop,
		HostNames: e.HostNames,
	}
}
