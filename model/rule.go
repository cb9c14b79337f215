package model

// RuleKind identifies how a zone's target release is computed.
type RuleKind int

const (
	// RuleConstant releases a fixed rate regardless of inflow.
	RuleConstant RuleKind = iota
	// RuleInflowFactor releases currentInflow multiplied by Value.
	RuleInflowFactor
	// RuleMaxRelease releases at the reservoir's maximum release rate.
	RuleMaxRelease
	// RuleMatchInflow passes inflow straight through.
	RuleMatchInflow
)

func (k RuleKind) String() string {
	switch k {
	case RuleConstant:
		return "constant"
	case RuleInflowFactor:
		return "inflow_factor"
	case RuleMaxRelease:
		return "max_release"
	case RuleMatchInflow:
		return "match_inflow"
	default:
		return "unknown"
	}
}

// RuleDefinition is one entry of a reservoir's zone → release table.
// Value is the constant rate for RuleConstant and the multiplier for
// RuleInflowFactor; it is ignored for the other kinds.
type RuleDefinition struct {
	Kind  RuleKind
	Value float64
}
