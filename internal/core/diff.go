package core

// ObjectType enumerates the kinds of catalog object a Difference describes.
type ObjectType string

const (
	ObjectSchema     ObjectType = "SCHEMA"
	ObjectTable      ObjectType = "TABLE"
	ObjectColumn     ObjectType = "COLUMN"
	ObjectConstraint ObjectType = "CONSTRAINT"
	ObjectIndex      ObjectType = "INDEX"
	ObjectView       ObjectType = "VIEW"
	ObjectTrigger    ObjectType = "TRIGGER"
	ObjectProcedure  ObjectType = "PROCEDURE"
	ObjectFunction   ObjectType = "FUNCTION"
	ObjectEvent      ObjectType = "EVENT"
)

// FixOrder returns the dependency rank for an object type (spec.md §4.2.5).
// Unknown types sort last.
func FixOrder(t ObjectType) int {
	switch t {
	case ObjectSchema:
		return 1
	case ObjectTable:
		return 2
	case ObjectColumn:
		return 3
	case ObjectConstraint:
		return 4
	case ObjectIndex:
		return 5
	case ObjectView:
		return 6
	case ObjectTrigger:
		return 7
	case ObjectProcedure:
		return 8
	case ObjectFunction:
		return 9
	case ObjectEvent:
		return 10
	default:
		return 99
	}
}

// SeverityLevel ranks the urgency of a Difference.
type SeverityLevel string

const (
	SeverityCritical SeverityLevel = "CRITICAL"
	SeverityHigh     SeverityLevel = "HIGH"
	SeverityMedium   SeverityLevel = "MEDIUM"
	SeverityLow      SeverityLevel = "LOW"
	SeverityInfo     SeverityLevel = "INFO"
)

// Rank returns an integer used for descending-severity sorts (spec.md
// §4.4.2: generator sorts by -severity_rank).
func (s SeverityLevel) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// DiffType is the closed tagged sum of every divergence this module
// detects (spec.md §9: "sum types over enum-flag explosion"). The
// generator's dispatch table (internal/generator) is a total function
// from DiffType to a (forward, rollback) statement pair, or "unsupported."
type DiffType string

const (
	TableMissingSource DiffType = "TABLE_MISSING_SOURCE"
	TableMissingTarget DiffType = "TABLE_MISSING_TARGET"
	TablePropertyChanged DiffType = "TABLE_PROPERTY_CHANGED"

	ColumnAdded          DiffType = "COLUMN_ADDED"
	ColumnRemoved        DiffType = "COLUMN_REMOVED"
	ColumnTypeChanged    DiffType = "COLUMN_TYPE_CHANGED"
	ColumnNullableChanged DiffType = "COLUMN_NULLABLE_CHANGED"
	ColumnDefaultChanged  DiffType = "COLUMN_DEFAULT_CHANGED"
	ColumnExtraChanged    DiffType = "COLUMN_EXTRA_CHANGED"

	IndexMissingSource   DiffType = "INDEX_MISSING_SOURCE"
	IndexMissingTarget   DiffType = "INDEX_MISSING_TARGET"
	IndexColumnsChanged  DiffType = "INDEX_COLUMNS_CHANGED"
	IndexUniqueChanged   DiffType = "INDEX_UNIQUE_CHANGED"
	IndexTypeChanged     DiffType = "INDEX_TYPE_CHANGED"
	IndexRenamed         DiffType = "INDEX_RENAMED"
	IndexDuplicateSource DiffType = "INDEX_DUPLICATE_SOURCE"
	IndexDuplicateTarget DiffType = "INDEX_DUPLICATE_TARGET"

	ConstraintMissingSource    DiffType = "CONSTRAINT_MISSING_SOURCE"
	ConstraintMissingTarget    DiffType = "CONSTRAINT_MISSING_TARGET"
	ConstraintDefinitionChanged DiffType = "CONSTRAINT_DEFINITION_CHANGED"
	ConstraintRenamed          DiffType = "CONSTRAINT_RENAMED"
)

// ReverseDiffType maps a DiffType to its direction-reversed counterpart
// (spec.md §4.4.1). Types not present in the map are direction-symmetric.
var ReverseDiffType = map[DiffType]DiffType{
	TableMissingSource: TableMissingTarget,
	TableMissingTarget: TableMissingSource,

	ColumnAdded:   ColumnRemoved,
	ColumnRemoved: ColumnAdded,

	IndexMissingSource: IndexMissingTarget,
	IndexMissingTarget: IndexMissingSource,

	ConstraintMissingSource: ConstraintMissingTarget,
	ConstraintMissingTarget: ConstraintMissingSource,
}

// Difference is one typed disagreement between the source and target
// catalogs (spec.md §3).
type Difference struct {
	DiffType        DiffType
	Severity        SeverityLevel
	ObjectType      ObjectType
	Schema          string
	ObjectName      string
	SubObjectName   string // e.g. column/index/constraint name within ObjectName
	SourceValue     any
	TargetValue     any
	SourceDisplay   string
	TargetDisplay   string
	Description     string
	CanAutoFix      bool
	FixOrder        int
	Warnings        []string
}

// TableKey returns the (schema, table) pair this difference is scoped to,
// used by the generator's redundancy filter (spec.md §4.4.2).
func (d *Difference) TableKey() string {
	return d.Schema + "." + d.ObjectName
}
