package output

import (
	"io"
	"strings"

	"schemasync/internal/core"
)

type sqlFormatter struct{}

// FormatComparison formats a comparison result's differences as SQL
// comments, for quick visual review before generating a sync script.
func (sqlFormatter) FormatComparison(result *core.ComparisonResult) (string, error) {
	if result == nil {
		return "", nil
	}
	return formatComparisonText(result), nil
}

// FormatSyncScript formats a sync script's forward SQL, followed by its
// rollback SQL as a trailing comment block.
func (sqlFormatter) FormatSyncScript(s *core.SyncScript) (string, error) {
	if s == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("-- schemasync sync script\n")
	sb.WriteString("-- Review before running in production.\n")
	if s.RequiresDowntime {
		sb.WriteString("-- WARNING: requires downtime\n")
	}
	if s.DataLossRisk {
		sb.WriteString("-- WARNING: data loss risk\n")
	}

	writeCommentSection(&sb, "WARNINGS", s.Warnings)

	if s.ForwardSQL == "" {
		sb.WriteString("\n-- No SQL statements generated.\n")
	} else {
		sb.WriteString("\n")
		sb.WriteString(s.ForwardSQL)
	}

	if s.RollbackSQL != "" {
		sb.WriteString("\n-- ROLLBACK SQL (run separately)\n")
		writeRollbackAsComments(&sb, s.RollbackSQL)
	}

	return sb.String(), nil
}

// WriteSyncScript writes a formatted sync script to the given writer.
func WriteSyncScript(s *core.SyncScript, w io.Writer) error {
	content, err := sqlFormatter{}.FormatSyncScript(s)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, content)
	return err
}

func writeCommentSection(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n-- " + title + "\n")
	for _, item := range items {
		for _, line := range splitCommentLines(item) {
			if line == "" {
				continue
			}
			sb.WriteString("-- - " + line + "\n")
		}
	}
}

func splitCommentLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

func writeRollbackAsComments(sb *strings.Builder, rollback string) {
	for _, line := range splitCommentLines(rollback) {
		if line == "" {
			continue
		}
		sb.WriteString("-- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}
