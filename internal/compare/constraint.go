package compare

import (
	"fmt"

	"schemasync/internal/core"
	"schemasync/internal/introspect"
)

// Constraints diffs the constraints of one table pair. PRIMARY KEY
// constraints are matched by exact name only and never fed into the
// fingerprint pass (invariant I4 — a PRIMARY KEY's column set is often
// unique to its table anyway, but the rule is absolute: renaming a primary
// key is vanishingly rare and conflating it with a rename hides what is
// almost always two independent, coincidental changes). FOREIGN KEY and
// CHECK constraints go through the same four-pass match as indexes.
func Constraints(schema, table string, source, target introspect.Keyed[*core.Constraint], opts core.ComparisonOptions) []core.Difference {
	var diffs []core.Difference

	sourcePK, sourceRest := splitPrimaryKey(source)
	targetPK, targetRest := splitPrimaryKey(target)

	diffs = append(diffs, primaryKeyDiff(schema, table, sourcePK, targetPK)...)

	result := Match(sourceRest, targetRest, func(c *core.Constraint) string { return c.Name })

	for _, pair := range result.Exact {
		diffs = append(diffs, constraintDefinitionChange(schema, table, pair.Source, pair.Target)...)
	}

	for _, r := range result.Renamed {
		diffs = append(diffs, core.Difference{
			DiffType:      core.ConstraintRenamed,
			Severity:      core.SeverityLow,
			ObjectType:    core.ObjectConstraint,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: r.TargetName,
			SourceDisplay: r.SourceName,
			TargetDisplay: r.TargetName,
			FixOrder:      core.FixOrder(core.ObjectConstraint),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("constraint on %s.%s renamed from %s to %s", schema, table, r.SourceName, r.TargetName),
		})
	}

	for _, c := range result.MissingInTarget {
		diffs = append(diffs, core.Difference{
			DiffType:      core.ConstraintMissingTarget,
			Severity:      severityForConstraint(c),
			ObjectType:    core.ObjectConstraint,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: c.Name,
			SourceValue:   c,
			FixOrder:      core.FixOrder(core.ObjectConstraint),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("%s %s on %s.%s exists in source but not target", c.Kind, c.Name, schema, table),
		})
	}
	for _, c := range result.MissingInSource {
		diffs = append(diffs, core.Difference{
			DiffType:      core.ConstraintMissingSource,
			Severity:      severityForConstraint(c),
			ObjectType:    core.ObjectConstraint,
			Schema:        schema,
			ObjectName:    table,
			SubObjectName: c.Name,
			TargetValue:   c,
			FixOrder:      core.FixOrder(core.ObjectConstraint),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("%s %s on %s.%s exists in target but not source", c.Kind, c.Name, schema, table),
		})
	}

	_ = opts
	return diffs
}

func splitPrimaryKey(k introspect.Keyed[*core.Constraint]) (pk *core.Constraint, rest introspect.Keyed[*core.Constraint]) {
	rest = introspect.NewKeyed[*core.Constraint]()
	for _, key := range k.Order {
		c, _ := k.Get(key)
		if c.Kind == core.ConstraintPrimaryKey {
			pk = c
			continue
		}
		rest.Add(key, c)
	}
	return pk, rest
}

func primaryKeyDiff(schema, table string, source, target *core.Constraint) []core.Difference {
	switch {
	case source == nil && target == nil:
		return nil
	case source != nil && target == nil:
		return []core.Difference{{
			DiffType:    core.ConstraintMissingTarget,
			Severity:    core.SeverityCritical,
			ObjectType:  core.ObjectConstraint,
			Schema:      schema,
			ObjectName:  table,
			SourceValue: source,
			FixOrder:    core.FixOrder(core.ObjectConstraint),
			CanAutoFix:  true,
			Description: fmt.Sprintf("primary key on %s.%s exists in source but not target", schema, table),
		}}
	case source == nil && target != nil:
		return []core.Difference{{
			DiffType:    core.ConstraintMissingSource,
			Severity:    core.SeverityCritical,
			ObjectType:  core.ObjectConstraint,
			Schema:      schema,
			ObjectName:  table,
			TargetValue: target,
			FixOrder:    core.FixOrder(core.ObjectConstraint),
			CanAutoFix:  true,
			Description: fmt.Sprintf("primary key on %s.%s exists in target but not source", schema, table),
		}}
	case source.Columns != target.Columns:
		return []core.Difference{{
			DiffType:      core.ConstraintDefinitionChanged,
			Severity:      core.SeverityCritical,
			ObjectType:    core.ObjectConstraint,
			Schema:        schema,
			ObjectName:    table,
			SourceValue:   source,
			TargetValue:   target,
			SourceDisplay: source.Columns,
			TargetDisplay: target.Columns,
			FixOrder:      core.FixOrder(core.ObjectConstraint),
			CanAutoFix:    true,
			Description:   fmt.Sprintf("primary key on %s.%s: columns differ (%s vs %s)", schema, table, source.Columns, target.Columns),
		}}
	default:
		return nil
	}
}

func constraintDefinitionChange(schema, table string, sc, tc *core.Constraint) []core.Difference {
	if sc.Columns == tc.Columns &&
		sc.ReferencedSchema == tc.ReferencedSchema &&
		sc.ReferencedTable == tc.ReferencedTable &&
		sc.ReferencedColumns == tc.ReferencedColumns &&
		sc.UpdateRule == tc.UpdateRule &&
		sc.DeleteRule == tc.DeleteRule &&
		sc.CheckClause == tc.CheckClause {
		return nil
	}
	return []core.Difference{{
		DiffType:      core.ConstraintDefinitionChanged,
		Severity:      severityForConstraint(sc),
		ObjectType:    core.ObjectConstraint,
		Schema:        schema,
		ObjectName:    table,
		SubObjectName: sc.Name,
		SourceValue:   sc,
		TargetValue:   tc,
		FixOrder:      core.FixOrder(core.ObjectConstraint),
		CanAutoFix:    true,
		Description:   fmt.Sprintf("%s %s on %s.%s: definition differs", sc.Kind, sc.Name, schema, table),
	}}
}

func severityForConstraint(c *core.Constraint) core.SeverityLevel {
	switch c.Kind {
	case core.ConstraintPrimaryKey:
		return core.SeverityCritical
	case core.ConstraintForeignKey:
		return core.SeverityHigh
	default:
		return core.SeverityMedium
	}
}
