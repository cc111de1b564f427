package core

import "time"

// Summary aggregates a ComparisonResult's differences (spec.md §3).
type Summary struct {
	CountsBySeverity map[SeverityLevel]int
	CountsByDiffType map[DiffType]int
	CountsByObject   map[ObjectType]int
	CriticalCount    int
	DataLossRisk     []string // object keys flagged as carrying data-loss risk
	AffectedSchemas  []string
	AffectedTables   []string
}

// EndpointSnapshot is the non-secret subset of an Endpoint recorded on a
// ComparisonResult for audit purposes.
type EndpointSnapshot struct {
	Host        string
	Port        int
	Database    string
	DisplayName string
}

// ComparisonResult is the terminal value of a comparison (spec.md §3).
type ComparisonResult struct {
	ComparisonID   string
	StartedAt      time.Time
	CompletedAt    time.Time
	Source         EndpointSnapshot
	Target         EndpointSnapshot
	Options        ComparisonOptions
	Differences    []Difference
	Summary        Summary
	Duration       time.Duration
	ObjectsCompared int
	Errors         []string
	Warnings       []string
}

// SyncDirection selects which side of a ComparisonResult a SyncScript makes
// authoritative (spec.md §4.4.1).
type SyncDirection string

const (
	SourceToTarget SyncDirection = "source_to_target"
	TargetToSource SyncDirection = "target_to_source"
)

// SyncScript is the output of the sync-script generator (spec.md §3).
type SyncScript struct {
	ComparisonID           string
	Direction              SyncDirection
	ForwardSQL             string
	RollbackSQL            string
	Warnings               []string
	EstimatedImpact        map[string]any
	EstimatedDurationSecs  int
	RequiresDowntime       bool
	DataLossRisk           bool
	Validated              bool
	ValidationErrors       []string
}
