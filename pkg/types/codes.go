package types

// codeKey identifies one row of the correlation-code table: an entity
// scope, a metric, and which tier fired (warn or err). The wire values
// below are part of the downstream parsing contract (spec.md §7) and
// must never change once shipped.
type codeKey struct {
	entity EntityKind
	metric MetricProperty
	tier   HealthState
}

// OkCode is emitted whenever a series clears from Warning/Error back to Ok.
const OkCode = "FO000"

// ObserverTimeoutCode and ObserverFatalCode are agent-level codes the
// scheduler (C10) emits about its own observers, outside the per-metric
// FO001-FO028 range reserved for evaluation breaches.
const (
	ObserverTimeoutCode = "FO029"
	ObserverFatalCode   = "FO030"
)

var correlationCodes = map[codeKey]string{
	// Node-scoped
	{EntityNode, MetricTotalCpuTime, HealthWarning}: "FO001",
	{EntityNode, MetricTotalCpuTime, HealthError}:   "FO002",
	{EntityNode, MetricTotalMemoryConsumptionMb, HealthWarning}: "FO003",
	{EntityNode, MetricTotalMemoryConsumptionMb, HealthError}:   "FO004",
	{EntityNode, MetricTotalMemoryConsumptionPct, HealthWarning}: "FO005",
	{EntityNode, MetricTotalMemoryConsumptionPct, HealthError}:   "FO006",
	{EntityNode, MetricDiskSpaceUsagePercentage, HealthWarning}: "FO007",
	{EntityNode, MetricDiskSpaceUsagePercentage, HealthError}:   "FO008",
	{EntityNode, MetricDiskSpaceUsageMb, HealthWarning}: "FO009",
	{EntityNode, MetricDiskSpaceUsageMb, HealthError}:   "FO010",
	{EntityNode, MetricDiskAverageQueueLength, HealthWarning}: "FO011",
	{EntityNode, MetricDiskAverageQueueLength, HealthError}:   "FO012",
	{EntityNode, MetricTotalActivePorts, HealthWarning}: "FO013",
	{EntityNode, MetricTotalActivePorts, HealthError}:   "FO014",
	{EntityNode, MetricTotalEphemeralPorts, HealthWarning}: "FO015",
	{EntityNode, MetricTotalEphemeralPorts, HealthError}:   "FO016",
	{EntityNode, MetricTotalActiveFirewallRules, HealthWarning}: "FO017",
	{EntityNode, MetricTotalActiveFirewallRules, HealthError}:   "FO018",

	// Application-scoped
	{EntityApplication, MetricTotalCpuTime, HealthWarning}: "FO019",
	{EntityApplication, MetricTotalCpuTime, HealthError}:   "FO020",
	{EntityApplication, MetricTotalMemoryConsumptionMb, HealthWarning}: "FO021",
	{EntityApplication, MetricTotalMemoryConsumptionMb, HealthError}:   "FO022",
	{EntityApplication, MetricTotalMemoryConsumptionPct, HealthWarning}: "FO023",
	{EntityApplication, MetricTotalMemoryConsumptionPct, HealthError}:   "FO024",
	{EntityApplication, MetricTotalActivePorts, HealthWarning}: "FO025",
	{EntityApplication, MetricTotalActivePorts, HealthError}:   "FO026",
	{EntityApplication, MetricTotalEphemeralPorts, HealthWarning}: "FO027",
	{EntityApplication, MetricTotalEphemeralPorts, HealthError}:   "FO028",
}

// CorrelationCode returns the stable wire code for a (entity, metric, tier)
// triple. Callers only ever pass HealthWarning or HealthError; HealthOk
// always maps to OkCode and isn't in the table.
func CorrelationCode(entity EntityKind, metric MetricProperty, tier HealthState) (string, bool) {
	if tier == HealthOk {
		return OkCode, true
	}
	code, ok := correlationCodes[codeKey{entity, metric, tier}]
	return code, ok
}
