package constants

// Workspace scopes accepted in a query context besides a numeric workspace id.
const (
	ScopeAll    = "all"
	ScopeShared = "shared"
)

// GroupNone means the grid is not grouping; any other value forces
// materialized mode.
const GroupNone = "none"

// Filterable field names. Unknown keys are dropped at the normalizer boundary.
const (
	FieldCategory       = "category_id"
	FieldStatus         = "status_id"
	FieldPriority       = "priority_id"
	FieldSpot           = "spot_id"
	FieldUsers          = "user_ids"
	FieldTags           = "tag_ids"
	FieldApprovalStatus = "approval_status"
	FieldDueDate        = "due_date"
	FieldName           = "name"
)

// Lookup kinds supplied by the host application.
const (
	LookupStatus   = "status"
	LookupPriority = "priority"
	LookupSpot     = "spot"
	LookupUser     = "user"
	LookupTag      = "tag"
)

// Grid-state kinds persisted per scope key.
const (
	StateKindFilter  = "filter"
	StateKindColumns = "columns"
)
