// Package stage reports the graph's developmental stage: a purely
// informational maturity signal derived from the count of stable edges
// (weight >= types.StableEdgeThreshold). No operation in this module is gated by
// stage; every graph operation is available regardless of the current
// stage. The thresholds below are illustrative placeholders, not tuned
// limits.
package stage

// Stage is a developmental stage. Stages are ordered S0 < S1 < S2 < S3.
type Stage int

const (
	S0 Stage = iota // Signal Segmentation
	S1              // Pattern Crystallization
	S2              // Causal Chaining
	S3              // Recursive Optimization
)

const (
	s1Threshold = 100
	s2Threshold = 1000
	s3Threshold = 5000
)

// Name returns the stage's human-readable name.
func (s Stage) Name() string {
	switch s {
	case S0:
		return "Signal Segmentation"
	case S1:
		return "Pattern Crystallization"
	case S2:
		return "Causal Chaining"
	case S3:
		return "Recursive Optimization"
	default:
		return "Unknown"
	}
}

// Threshold returns the minimum stable edge count required to reach s.
func (s Stage) Threshold() uint64 {
	switch s {
	case S0:
		return 0
	case S1:
		return s1Threshold
	case S2:
		return s2Threshold
	case S3:
		return s3Threshold
	default:
		return 0
	}
}

// Next returns the stage after s, and false if s is terminal.
func (s Stage) Next() (Stage, bool) {
	if s >= S3 {
		return s, false
	}
	return s + 1, true
}

// Previous returns the stage before s, and false if s is S0.
func (s Stage) Previous() (Stage, bool) {
	if s <= S0 {
		return s, false
	}
	return s - 1, true
}

// IsTerminal reports whether s is the final stage (S3).
func (s Stage) IsTerminal() bool {
	return s == S3
}

// String renders s as "S0: Signal Segmentation".
func (s Stage) String() string {
	names := [...]string{"S0", "S1", "S2", "S3"}
	idx := int(s)
	if idx < 0 || idx >= len(names) {
		return "S?: Unknown"
	}
	return names[idx] + ": " + s.Name()
}

// Progress is the stage assessment reported by a session's status check.
// ProgressPercent is floored integer percent toward the next stage's
// threshold (0-100); a terminal stage always reports 100.
type Progress struct {
	Current           Stage
	StableEdges       uint64
	StableEdgesNeeded uint64
	ProgressPercent   uint64
}

// Assess derives the current stage and progress from a stable edge count.
func Assess(stableEdges uint64) Progress {
	current := S0
	for {
		next, ok := current.Next()
		if !ok || stableEdges < next.Threshold() {
			break
		}
		current = next
	}

	if current.IsTerminal() {
		return Progress{Current: current, StableEdges: stableEdges, StableEdgesNeeded: 0, ProgressPercent: 100}
	}

	next, _ := current.Next()
	needed := next.Threshold()
	span := needed - current.Threshold()
	progressed := stableEdges - current.Threshold()
	percent := uint64(0)
	if span > 0 {
		percent = (progressed * 100) / span
	}
	return Progress{Current: current, StableEdges: stableEdges, StableEdgesNeeded: needed, ProgressPercent: percent}
}

// Capability is a conceptual capability conventionally associated with a
// stage. This is operator-facing metadata only: no graph operation checks
// a session's stage before running.
type Capability int

const (
	SignalSegmentation Capability = iota
	PrimitiveLinking
	GrammarInduction
	PatternGeneration
	CausalityDetection
	TemporalMemory
	CausalChainExtraction
	GoalPlanning
	FacetTriggers
	WorldModification
)

// RequiredStage returns the stage a capability conceptually belongs to.
func (c Capability) RequiredStage() Stage {
	switch c {
	case SignalSegmentation, PrimitiveLinking:
		return S0
	case GrammarInduction, PatternGeneration:
		return S1
	case CausalityDetection, TemporalMemory, CausalChainExtraction:
		return S2
	case GoalPlanning, FacetTriggers, WorldModification:
		return S3
	default:
		return S0
	}
}

// Description returns a short human-readable description of c.
func (c Capability) Description() string {
	switch c {
	case SignalSegmentation:
		return "Basic signal segmentation into discrete units"
	case PrimitiveLinking:
		return "Creating directed edges between sequential units"
	case GrammarInduction:
		return "Inducing grammar from patterns"
	case PatternGeneration:
		return "Generating simple patterns from structure"
	case CausalityDetection:
		return "Detecting causal relationships"
	case TemporalMemory:
		return "Accessing temporal memory patterns"
	case CausalChainExtraction:
		return "Extracting causal chains from graph"
	case GoalPlanning:
		return "Planning goals via external systems"
	case FacetTriggers:
		return "Triggering external facet operations"
	case WorldModification:
		return "Modifying external world state"
	default:
		return "Unknown capability"
	}
}

// Capabilities lists every capability conventionally gated at or below s,
// in RequiredStage order. Purely descriptive: no runtime enforcement.
func Capabilities(s Stage) []Capability {
	all := []Capability{
		SignalSegmentation, PrimitiveLinking,
		GrammarInduction, PatternGeneration,
		CausalityDetection, TemporalMemory, CausalChainExtraction,
		GoalPlanning, FacetTriggers, WorldModification,
	}
	out := make([]Capability, 0, len(all))
	for _, c := range all {
		if c.RequiredStage() <= s {
			out = append(out, c)
		}
	}
	return out
}

// DensityPerThousand converts a density_millionths figure (as reported by
// a session status check) to parts-per-thousand, for operator displays
// that want a coarser figure than millionths.
func DensityPerThousand(densityMillionths uint64) uint64 {
	return densityMillionths / 1000
}
