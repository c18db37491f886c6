package depmodel

import "time"

// DeploymentLog is the durable record of a deployment plan and its
// execution (spec.md §3 DeploymentLog). It owns its OperationLogs and
// ComponentVersionLogs.
type DeploymentLog struct {
	ID               int64
	Sources          []string
	Targets          []string
	FilterExpression string
	FilterType       FilterType // zero value means unset
	Restart          bool
	DeploymentType   DeploymentType
	State            DeploymentState
	StartTime        *time.Time
	EndTime          *time.Time
	Operations       []*OperationLog
	ComponentVersion []*ComponentVersionLog
}

// NewPlanned builds a DeploymentLog in state PLANNED with the given
// operation names, in order. Each OperationLog starts PLANNED.
func NewPlanned(deploymentType DeploymentType, operationNames []string) *DeploymentLog {
	log := &DeploymentLog{
		DeploymentType: deploymentType,
		State:          DeploymentPlanned,
		Operations:     make([]*OperationLog, 0, len(operationNames)),
	}
	for _, name := range operationNames {
		log.Operations = append(log.Operations, &OperationLog{
			Operation: name,
			State:     OperationPlanned,
		})
	}
	return log
}

// OperationNames returns the plan-order sequence of operation names.
func (d *DeploymentLog) OperationNames() []string {
	names := make([]string, len(d.Operations))
	for i, op := range d.Operations {
		names[i] = op.Operation
	}
	return names
}

// IndexOfFirstFailure returns the plan index of the first operation in state
// FAILURE, or -1 if none failed.
func (d *DeploymentLog) IndexOfFirstFailure() int {
	for i, op := range d.Operations {
		if op.State == OperationFailure {
			return i
		}
	}
	return -1
}

// OperationLog is the durable per-operation outcome within a deployment
// (spec.md §3 OperationLog).
type OperationLog struct {
	DeploymentID int64
	Operation    string
	State        OperationState
	StartTime    *time.Time
	EndTime      *time.Time
	Logs         []byte
}

// ComponentVersionLog records the content hash of a (service, component)'s
// variables at the moment its configure operation succeeded (spec.md §3
// ComponentVersionLog).
type ComponentVersionLog struct {
	DeploymentID int64
	Service      string
	Component    string // empty for service-level
	Version      string
}

// ShortVersion returns the 7-character display prefix of Version (spec.md
// §4.G), or the full string if shorter.
func (c ComponentVersionLog) ShortVersion() string {
	if len(c.Version) <= 7 {
		return c.Version
	}
	return c.Version[:7]
}

// Key returns the (service, component) pairing key this version applies to.
func (c ComponentVersionLog) Key() ComponentKey {
	return ComponentKey{Service: c.Service, Component: c.Component}
}
