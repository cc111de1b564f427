package generator

import (
	"regexp"
	"strings"

	"schemasync/internal/core"
)

var reSourceOrTarget = regexp.MustCompile(`(?i)\bsource\b|\btarget\b`)

// reverseDescription swaps every occurrence of "source" and "target" in one
// pass. A naive two-step strings.ReplaceAll("source","target") followed by
// ReplaceAll("target","source") would re-match text the first call just
// produced and flip it straight back; ReplaceAllStringFunc decides each
// match against the original string instead, so the swap is simultaneous.
func reverseDescription(desc string) string {
	return reSourceOrTarget.ReplaceAllStringFunc(desc, func(word string) string {
		if strings.EqualFold(word, "source") {
			return "target"
		}
		return "source"
	})
}

// ApplyDirection returns diffs as seen from the requested direction. For
// SourceToTarget (the default — source is authoritative, target is being
// brought in line) diffs pass through unchanged. For TargetToSource, every
// difference is mirrored: its DiffType is remapped via core.ReverseDiffType,
// its Source/Target-prefixed fields swap, and its description is reworded
// (spec.md §4.4.1).
func ApplyDirection(diffs []core.Difference, direction core.SyncDirection) []core.Difference {
	if direction == core.SourceToTarget {
		return diffs
	}

	out := make([]core.Difference, len(diffs))
	for i, d := range diffs {
		r := d
		if reversed, ok := core.ReverseDiffType[d.DiffType]; ok {
			r.DiffType = reversed
		}
		r.SourceValue, r.TargetValue = d.TargetValue, d.SourceValue
		r.SourceDisplay, r.TargetDisplay = d.TargetDisplay, d.SourceDisplay
		r.Description = reverseDescription(d.Description)
		out[i] = r
	}
	return out
}
