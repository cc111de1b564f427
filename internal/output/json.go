package output

import (
	"encoding/json"

	"schemasync/internal/core"
)

type jsonFormatter struct{}

type comparisonSummaryPayload struct {
	TotalDifferences int            `json:"totalDifferences"`
	CriticalCount    int            `json:"criticalCount"`
	BySeverity       map[string]int `json:"bySeverity,omitempty"`
	ByObjectType     map[string]int `json:"byObjectType,omitempty"`
	AffectedTables   []string       `json:"affectedTables,omitempty"`
	DataLossRisk     []string       `json:"dataLossRisk,omitempty"`
}

type comparisonPayload struct {
	Format          string                   `json:"format"`
	ComparisonID    string                   `json:"comparisonId"`
	Source          core.EndpointSnapshot    `json:"source"`
	Target          core.EndpointSnapshot    `json:"target"`
	DurationMs      int64                    `json:"durationMs"`
	ObjectsCompared int                      `json:"objectsCompared"`
	Summary         comparisonSummaryPayload `json:"summary"`
	Differences     []core.Difference        `json:"differences,omitempty"`
	Errors          []string                 `json:"errors,omitempty"`
	Warnings        []string                 `json:"warnings,omitempty"`
}

type syncScriptPayload struct {
	Format                string         `json:"format"`
	ComparisonID          string         `json:"comparisonId"`
	Direction             string         `json:"direction"`
	ForwardSQL            string         `json:"forwardSql"`
	RollbackSQL           string         `json:"rollbackSql,omitempty"`
	Warnings              []string       `json:"warnings,omitempty"`
	EstimatedDurationSecs int            `json:"estimatedDurationSeconds"`
	RequiresDowntime      bool           `json:"requiresDowntime"`
	DataLossRisk          bool           `json:"dataLossRisk"`
	Validated             bool           `json:"validated"`
	ValidationErrors      []string       `json:"validationErrors,omitempty"`
	EstimatedImpact       map[string]any `json:"estimatedImpact,omitempty"`
}

type payload interface {
	comparisonPayload | syncScriptPayload
}

// FormatComparison formats a comparison result as JSON.
func (jsonFormatter) FormatComparison(result *core.ComparisonResult) (string, error) {
	p := comparisonPayload{Format: string(FormatJSON)}
	if result != nil {
		p.ComparisonID = result.ComparisonID
		p.Source = result.Source
		p.Target = result.Target
		p.DurationMs = result.Duration.Milliseconds()
		p.ObjectsCompared = result.ObjectsCompared
		p.Differences = result.Differences
		p.Errors = result.Errors
		p.Warnings = result.Warnings
		p.Summary = comparisonSummaryPayload{
			TotalDifferences: len(result.Differences),
			CriticalCount:    result.Summary.CriticalCount,
			BySeverity:       severityCounts(result.Summary.CountsBySeverity),
			ByObjectType:     objectTypeCounts(result.Summary.CountsByObject),
			AffectedTables:   result.Summary.AffectedTables,
			DataLossRisk:     result.Summary.DataLossRisk,
		}
	}
	return marshalJSON(p)
}

// FormatSyncScript formats a sync script as JSON.
func (jsonFormatter) FormatSyncScript(s *core.SyncScript) (string, error) {
	p := syncScriptPayload{Format: string(FormatJSON)}
	if s != nil {
		p.ComparisonID = s.ComparisonID
		p.Direction = string(s.Direction)
		p.ForwardSQL = s.ForwardSQL
		p.RollbackSQL = s.RollbackSQL
		p.Warnings = s.Warnings
		p.EstimatedDurationSecs = s.EstimatedDurationSecs
		p.RequiresDowntime = s.RequiresDowntime
		p.DataLossRisk = s.DataLossRisk
		p.Validated = s.Validated
		p.ValidationErrors = s.ValidationErrors
		p.EstimatedImpact = s.EstimatedImpact
	}
	return marshalJSON(p)
}

func severityCounts(m map[core.SeverityLevel]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func objectTypeCounts(m map[core.ObjectType]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func marshalJSON[T payload](p T) (string, error) {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
