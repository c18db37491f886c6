package depmodel

import (
	"fmt"
	"strings"
)

// Operation is a read-only catalog entry (spec.md §3 Operation). Instances
// are produced by the catalog loader (internal/catalog) and are immutable
// once the process starts.
type Operation struct {
	Name      string
	Service   string
	Component string // empty means service-level, not component-level
	Action    string
	Noop      bool
	HostNames []string
}

// HasComponent reports whether the operation is scoped to a component rather
// than the whole service.
func (o Operation) HasComponent() bool {
	return o.Component != ""
}

// ComponentKey identifies the (service, component) pair an operation's
// configure/start/restart action applies to, for component-version pairing
// (spec.md §4.F).
type ComponentKey struct {
	Service   string
	Component string // empty for service-level
}

func (k ComponentKey) String() string {
	if k.Component == "" {
		return k.Service
	}
	return k.Service + "/" + k.Component
}

// Key returns the operation's (service, component) pairing key.
func (o Operation) Key() ComponentKey {
	return ComponentKey{Service: o.Service, Component: o.Component}
}

// ParseOperationName splits a catalog name of the form
// "<service>[_<component>]_<action>" into its parts, per spec.md §3. The
// last underscore-delimited segment is always the action; when more than
// one segment remains, the first is the service and the rest (rejoined with
// "_") form the component name.
func ParseOperationName(name string) (service, component, action string, err error) {
	segments := strings.Split(name, "_")
	if len(segments) < 2 {
		return "", "", "", fmt.Errorf("operation name %q must be of the form <service>[_<component>]_<action>", name)
	}

	action = segments[len(segments)-1]
	rest := segments[:len(segments)-1]

	service = rest[0]
	if len(rest) > 1 {
		component = strings.Join(rest[1:], "_")
	}
	return service, component, action, nil
}

// RestartNameFor returns the restart-action counterpart of a "*_start"
// operation name, e.g. "hdfs_start" -> "hdfs_restart". It returns ok=false
// for any name not ending in "_start".
func RestartNameFor(startName string) (string, bool) {
	const suffix = "_start"
	if !strings.HasSuffix(startName, suffix) {
		return "", false
	}
	return strings.TrimSuffix(startName, suffix) + "_restart", true
}

// IsConfigAction reports whether the action component of an operation name
// is a configure action.
func IsConfigAction(action string) bool {
	return action == "config"
}

// IsStartAction reports whether the action component of an operation name
// starts (or restarts) a component/service.
func IsStartAction(action string) bool {
	return action == "start" || action == "restart"
}
