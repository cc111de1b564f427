package core

// Phase enumerates the stages a comparison reports progress for
// (spec.md §4.2.6, §6).
type Phase string

const (
	PhaseDiscovery  Phase = "discovery"
	PhaseComparison Phase = "comparison"
	PhaseAnalysis   Phase = "analysis"
	PhaseReport     Phase = "report"
	PhaseError      Phase = "error"
)

// ProgressEvent is one immutable point in a comparison's progress stream
// (spec.md §6, §9 "Progress streaming": events are never mutated in place).
type ProgressEvent struct {
	ComparisonID            string
	Phase                   Phase
	Current                 int
	Total                   int
	CurrentObject           string
	Message                 string
	EstimatedTimeRemainingS int
}
