// Package types holds the data model shared by the observer pipeline:
// sampled series identity, threshold pairs, replica/instance and
// application-target records, and the health report shape emitted by
// the evaluation pipeline.
package types

import "time"

// MetricProperty identifies the kind of value a series samples.
type MetricProperty string

const (
	MetricTotalCpuTime             MetricProperty = "TotalCpuTime"
	MetricTotalMemoryConsumptionMb  MetricProperty = "TotalMemoryConsumptionMb"
	MetricTotalMemoryConsumptionPct MetricProperty = "TotalMemoryConsumptionPct"
	MetricTotalActivePorts          MetricProperty = "TotalActivePorts"
	MetricTotalEphemeralPorts       MetricProperty = "TotalEphemeralPorts"
	MetricDiskSpaceUsagePercentage  MetricProperty = "DiskSpaceUsagePercentage"
	MetricDiskSpaceUsageMb          MetricProperty = "DiskSpaceUsageMb"
	MetricDiskSpaceAvailableMb      MetricProperty = "DiskSpaceAvailableMb"
	MetricDiskSpaceTotalMb          MetricProperty = "DiskSpaceTotalMb"
	MetricDiskAverageQueueLength    MetricProperty = "DiskAverageQueueLength"
	MetricTotalActiveFirewallRules  MetricProperty = "TotalActiveFirewallRules"
)

// Units is the display unit a series' samples are expressed in.
type Units string

const (
	UnitsPercent Units = "%"
	UnitsMB      Units = "MB"
	UnitsGB      Units = "GB"
	UnitsCount   Units = ""
	UnitsQueue   Units = "queue"
)

// UnitsFor returns the conventional unit for a metric property.
func UnitsFor(m MetricProperty) Units {
	switch m {
	case MetricTotalMemoryConsumptionMb, MetricDiskSpaceUsageMb, MetricDiskSpaceAvailableMb, MetricDiskSpaceTotalMb:
		return UnitsMB
	case MetricTotalMemoryConsumptionPct, MetricDiskSpaceUsagePercentage, MetricTotalCpuTime:
		return UnitsPercent
	case MetricDiskAverageQueueLength:
		return UnitsQueue
	default:
		return UnitsCount
	}
}

// EntityKind scopes a health report to a node or to an application.
type EntityKind string

const (
	EntityNode        EntityKind = "Node"
	EntityApplication EntityKind = "Application"
)

// String renders an EntityKind as its wire value.
func (e EntityKind) String() string { return string(e) }

// HealthState is the tri-state verdict produced by the evaluation pipeline.
type HealthState string

const (
	HealthOk      HealthState = "Ok"
	HealthWarning HealthState = "Warning"
	HealthError   HealthState = "Error"
)

// ReplicaRole distinguishes the service roles the AppObserver is allowed
// to sample; only Primary stateful replicas and Stateless instances are
// monitored (spec.md §3).
type ReplicaRole string

const (
	RolePrimary   ReplicaRole = "Primary"
	RoleStateless ReplicaRole = "Stateless"
	RoleOther     ReplicaRole = "Other"
)

// ThresholdPair is a (warn, err) pair for one series. A zero value disables
// that tier. For every metric in this system higher is worse, so when both
// tiers are enabled 0 < warn <= err must hold.
type ThresholdPair struct {
	Warn float64
	Err  float64
}

// WarnEnabled reports whether the warning tier is active.
func (t ThresholdPair) WarnEnabled() bool { return t.Warn > 0 }

// ErrEnabled reports whether the error tier is active.
func (t ThresholdPair) ErrEnabled() bool { return t.Err > 0 }

// ReplicaInfo describes one hosted replica or stateless instance on this
// node, scoped to a single observation iteration.
type ReplicaInfo struct {
	ApplicationName            string
	ApplicationTypeName        string
	ServiceName                string
	HostProcessID              int32
	ReplicaOrInstanceID        string
	PartitionID                string
	ServicePackageActivationID string
	Role                       ReplicaRole
}

// ApplicationTarget is one entry of the AppObserver target-list
// configuration file. Exactly one of TargetApp / TargetAppType is set.
type ApplicationTarget struct {
	TargetApp          string  `json:"targetApp,omitempty"`
	TargetAppType      string  `json:"targetAppType,omitempty"`
	ServiceIncludeList string  `json:"serviceIncludeList,omitempty"`
	ServiceExcludeList string  `json:"serviceExcludeList,omitempty"`
	CPUWarn            float64 `json:"cpuWarningLimitPercent,omitempty"`
	CPUErr             float64 `json:"cpuErrorLimitPercent,omitempty"`
	MemoryMbWarn       float64 `json:"memoryWarningLimitMb,omitempty"`
	MemoryMbErr        float64 `json:"memoryErrorLimitMb,omitempty"`
	MemoryPctWarn      float64 `json:"memoryWarningLimitPercent,omitempty"`
	MemoryPctErr       float64 `json:"memoryErrorLimitPercent,omitempty"`
	PortsWarn          float64 `json:"networkWarningActivePorts,omitempty"`
	PortsErr           float64 `json:"networkErrorActivePorts,omitempty"`
	EphemeralWarn      float64 `json:"networkWarningEphemeralPorts,omitempty"`
	EphemeralErr       float64 `json:"networkErrorEphemeralPorts,omitempty"`
	DumpOnError        bool    `json:"dumpProcessOnError,omitempty"`
}

// IsWildcard reports whether this target expands to every non-system
// deployed application (spec.md §4.3 step 2).
func (a ApplicationTarget) IsWildcard() bool {
	return a.TargetApp == "*" || a.TargetApp == "all"
}

// ErrTargetExclusivity is returned by Validate when a target sets both, or
// neither, of TargetApp / TargetAppType.
var ErrTargetExclusivity = &targetError{"application target must set exactly one of targetApp or targetAppType"}

type targetError struct{ msg string }

func (e *targetError) Error() string { return e.msg }

// Validate enforces the exactly-one-of TargetApp/TargetAppType invariant.
func (a ApplicationTarget) Validate() error {
	hasApp := a.TargetApp != ""
	hasType := a.TargetAppType != ""
	if hasApp == hasType {
		return ErrTargetExclusivity
	}
	return nil
}

// InheritFrom fills zero-valued threshold fields from a wildcard target, per
// spec.md §4.3 step 2: "per-app thresholds inherit from the wildcard record
// only when the per-app value is zero".
func (a *ApplicationTarget) InheritFrom(wildcard ApplicationTarget) {
	if a.CPUWarn == 0 {
		a.CPUWarn = wildcard.CPUWarn
	}
	if a.CPUErr == 0 {
		a.CPUErr = wildcard.CPUErr
	}
	if a.MemoryMbWarn == 0 {
		a.MemoryMbWarn = wildcard.MemoryMbWarn
	}
	if a.MemoryMbErr == 0 {
		a.MemoryMbErr = wildcard.MemoryMbErr
	}
	if a.MemoryPctWarn == 0 {
		a.MemoryPctWarn = wildcard.MemoryPctWarn
	}
	if a.MemoryPctErr == 0 {
		a.MemoryPctErr = wildcard.MemoryPctErr
	}
	if a.PortsWarn == 0 {
		a.PortsWarn = wildcard.PortsWarn
	}
	if a.PortsErr == 0 {
		a.PortsErr = wildcard.PortsErr
	}
	if a.EphemeralWarn == 0 {
		a.EphemeralWarn = wildcard.EphemeralWarn
	}
	if a.EphemeralErr == 0 {
		a.EphemeralErr = wildcard.EphemeralErr
	}
	if !a.DumpOnError {
		a.DumpOnError = wildcard.DumpOnError
	}
}

// CPUThresholds, MemoryMbThresholds, etc. bundle a target's per-metric
// threshold pairs for handoff to the evaluation pipeline.
func (a ApplicationTarget) CPUThresholds() ThresholdPair {
	return ThresholdPair{Warn: a.CPUWarn, Err: a.CPUErr}
}

func (a ApplicationTarget) MemoryMbThresholds() ThresholdPair {
	return ThresholdPair{Warn: a.MemoryMbWarn, Err: a.MemoryMbErr}
}

func (a ApplicationTarget) MemoryPctThresholds() ThresholdPair {
	return ThresholdPair{Warn: a.MemoryPctWarn, Err: a.MemoryPctErr}
}

func (a ApplicationTarget) PortsThresholds() ThresholdPair {
	return ThresholdPair{Warn: a.PortsWarn, Err: a.PortsErr}
}

func (a ApplicationTarget) EphemeralThresholds() ThresholdPair {
	return ThresholdPair{Warn: a.EphemeralWarn, Err: a.EphemeralErr}
}

// Report is the health verdict produced by the evaluation pipeline and
// handed to the health reporter (C4) for emission.
type Report struct {
	Entity          EntityKind
	ObserverName    string
	NodeName        string
	ApplicationName string
	ServiceName     string
	Property        string
	Code            string
	State           HealthState
	Message         string
	TTL             time.Duration
	EmitLogEvent    bool
	Data            string
}

// SourceID is the stable identity the cluster health API coalesces
// re-reports on: (entity, observer, property, code).
func (r Report) SourceID() string {
	return r.Entity.String() + "/" + r.ObserverName + "/" + r.Property + "/" + r.Code
}
