package contract

// ResponseType is the discriminant carried in the "type" field of every
// backend response.
type ResponseType string

const (
	TypeClarify ResponseType = "clarify"
	TypeSQL     ResponseType = "sql"
	TypeBlocked ResponseType = "blocked"
)

// ClarifyType categorises why the backend needs disambiguation.
type ClarifyType string

const (
	ClarifyTimeRangeMissing          ClarifyType = "TIME_RANGE_MISSING"
	ClarifyTimeFieldAmbiguous        ClarifyType = "TIME_FIELD_AMBIGUOUS"
	ClarifyMetricDefinitionAmbiguous ClarifyType = "METRIC_DEFINITION_AMBIGUOUS"
	ClarifyEntityMappingAmbiguous    ClarifyType = "ENTITY_MAPPING_AMBIGUOUS"
	ClarifyFilterValueUnknown        ClarifyType = "FILTER_VALUE_UNKNOWN"
	ClarifyJoinPathAmbiguous         ClarifyType = "JOIN_PATH_AMBIGUOUS"
	ClarifyGroupingLevelAmbiguous    ClarifyType = "GROUPING_LEVEL_AMBIGUOUS"
	ClarifyLimitOrTopNAmbiguous      ClarifyType = "LIMIT_OR_TOPN_AMBIGUOUS"
)

// ClarifyUI is the widget hint for a clarify field.
type ClarifyUI string

const (
	UISingleSelect ClarifyUI = "single_select"
	UIMultiSelect  ClarifyUI = "multi_select"
	UIText         ClarifyUI = "text"
	UINumber       ClarifyUI = "number"
	UIDate         ClarifyUI = "date"
	UIDateRange    ClarifyUI = "date_range"
)

// Known reports whether u is one of the six defined widgets.
func (u ClarifyUI) Known() bool {
	switch u {
	case UISingleSelect, UIMultiSelect, UIText, UINumber, UIDate, UIDateRange:
		return true
	}
	return false
}

// Widget returns the widget a renderer should use. Unknown values fall
// back to plain text input; a newer backend may send widgets this client
// does not know yet.
func (u ClarifyUI) Widget() ClarifyUI {
	if u.Known() {
		return u
	}
	return UIText
}

// SQLDialect is the target SQL engine flavour.
type SQLDialect string

const (
	DialectMySQL    SQLDialect = "mysql"
	DialectPostgres SQLDialect = "postgres"
	DialectSQLite   SQLDialect = "sqlite"
	DialectUnknown  SQLDialect = "unknown"
)

// LogicalType is the engine-independent type of a selected column.
type LogicalType string

const (
	LogicalString    LogicalType = "string"
	LogicalNumber    LogicalType = "number"
	LogicalBoolean   LogicalType = "boolean"
	LogicalDate      LogicalType = "date"
	LogicalDatetime  LogicalType = "datetime"
	LogicalTimestamp LogicalType = "timestamp"
	LogicalEnum      LogicalType = "enum"
	LogicalJSON      LogicalType = "json"
)

// Known reports whether t is a defined logical type.
func (t LogicalType) Known() bool {
	switch t {
	case LogicalString, LogicalNumber, LogicalBoolean, LogicalDate,
		LogicalDatetime, LogicalTimestamp, LogicalEnum, LogicalJSON:
		return true
	}
	return false
}

// TableRole describes how a table participates in the query.
type TableRole string

const (
	RoleFact      TableRole = "fact"
	RoleDimension TableRole = "dimension"
	RoleBridge    TableRole = "bridge"
	RoleUnknown   TableRole = "unknown"
)

// JoinType is the SQL join kind.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// Cardinality of a join, left side first.
type Cardinality string

const (
	OneToOne   Cardinality = "1:1"
	OneToMany  Cardinality = "1:N"
	ManyToOne  Cardinality = "N:1"
	ManyToMany Cardinality = "N:N"
)

// JoinSource records where a join path came from.
type JoinSource string

const (
	JoinFromForeignKey   JoinSource = "fk"
	JoinFromRelationCard JoinSource = "relation_card"
	JoinInferred         JoinSource = "inferred"
)

// SemanticType marks a select item as dimension or metric.
type SemanticType string

const (
	SemanticDimension SemanticType = "dimension"
	SemanticMetric    SemanticType = "metric"
	SemanticUnknown   SemanticType = "unknown"
)

// FilterValueType is the shape of a filter's value.
type FilterValueType string

const (
	ValueString    FilterValueType = "string"
	ValueNumber    FilterValueType = "number"
	ValueDate      FilterValueType = "date"
	ValueDateRange FilterValueType = "date_range"
	ValueEnum      FilterValueType = "enum"
	ValueJSON      FilterValueType = "json"
	ValueRaw       FilterValueType = "raw"
)

// Known reports whether t is a defined filter value type.
func (t FilterValueType) Known() bool {
	switch t {
	case ValueString, ValueNumber, ValueDate, ValueDateRange, ValueEnum, ValueJSON, ValueRaw:
		return true
	}
	return false
}

// Provenance tells where a filter, column or limit value came from.
type Provenance string

const (
	FromUser      Provenance = "user"
	FromClarified Provenance = "clarified"
	FromDefault   Provenance = "default"
	FromInferred  Provenance = "inferred"
)

// ValidationStatus is the backend's verdict on the generated statement.
type ValidationStatus string

const (
	ValidationPass ValidationStatus = "pass"
	ValidationWarn ValidationStatus = "warn"
	ValidationFail ValidationStatus = "fail"
)

// SortDirection for ORDER BY items.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)
