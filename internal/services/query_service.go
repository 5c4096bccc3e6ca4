package services

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"taskgrid.com/taskgrid/internal/cache"
	"taskgrid.com/taskgrid/internal/constants"
	apperrors "taskgrid.com/taskgrid/internal/errors"
	model "taskgrid.com/taskgrid/internal/models"
	"taskgrid.com/taskgrid/internal/store"
)

// QueryResult is one answered row window plus the total matching count
// computed before pagination.
type QueryResult struct {
	Rows     []model.Task `json:"rows"`
	RowCount int          `json:"rowCount"`
}

// TaskPredicate is an externally supplied visibility check. Shared-with-user
// and team-visibility rules live with the host application, not here.
type TaskPredicate func(model.Task) bool

// QueryService executes paginated, filtered, sorted queries against the
// record store. The scan/filter/sort/slice pipeline runs against a snapshot,
// so a query never observes a half-applied write.
type QueryService struct {
	store      *store.RecordStore
	cache      *cache.RowCache
	sharedWith TaskPredicate
	visibleTo  TaskPredicate
}

func NewQueryService(recordStore *store.RecordStore, rowCache *cache.RowCache) *QueryService {
	return &QueryService{
		store:      recordStore,
		cache:      rowCache,
		sharedWith: func(t model.Task) bool { return t.Shared },
		visibleTo:  func(model.Task) bool { return true },
	}
}

// SetSharedPredicate overrides the "shared" scope predicate.
func (s *QueryService) SetSharedPredicate(p TaskPredicate) {
	if p != nil {
		s.sharedWith = p
	}
}

// SetVisibilityPredicate overrides the "all" scope predicate.
func (s *QueryService) SetVisibilityPredicate(p TaskPredicate) {
	if p != nil {
		s.visibleTo = p
	}
}

// QueryTasks answers the [startRow, endRow) window of the filtered, sorted
// result set. endRow <= startRow is the cheap count-only form: empty rows,
// correct rowCount.
func (s *QueryService) QueryTasks(ctx context.Context, qc model.QueryContext, startRow, endRow int) (*QueryResult, error) {
	if startRow < 0 || endRow < 0 {
		return nil, apperrors.ErrInvalidWindow
	}
	if !s.store.Ready() {
		return nil, apperrors.ErrStoreNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cache.Key(qc, startRow, endRow)
	if page, ok := s.cache.Get(key); ok {
		return &QueryResult{Rows: page.Rows, RowCount: page.RowCount}, nil
	}

	result, err := s.execute(qc, startRow, endRow)
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, cache.CachedPage{Rows: result.Rows, RowCount: result.RowCount})
	return result, nil
}

// execute runs the pipeline with a panic guard so an unexpected failure in a
// comparator or matcher surfaces as a query error, not a crash, and stays
// distinguishable from zero results.
func (s *QueryService) execute(qc model.QueryContext, startRow, endRow int) (result *QueryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("query: execution panic for context %s: %v", qc.Key(), r)
			result = nil
			err = apperrors.ErrQueryFailed
		}
	}()

	matched := make([]model.Task, 0)
	for _, task := range s.store.ScanAll() {
		if !s.inScope(qc, task) {
			continue
		}
		if !matchesSearch(task, qc.Search) {
			continue
		}
		if !matchesFilters(task, qc.Filters) {
			continue
		}
		matched = append(matched, task)
	}

	rowCount := len(matched)
	if endRow <= startRow {
		return &QueryResult{Rows: []model.Task{}, RowCount: rowCount}, nil
	}

	sortRows(matched, qc.Sort)

	if startRow >= rowCount {
		return &QueryResult{Rows: []model.Task{}, RowCount: rowCount}, nil
	}
	if endRow > rowCount {
		endRow = rowCount
	}
	rows := make([]model.Task, endRow-startRow)
	copy(rows, matched[startRow:endRow])

	return &QueryResult{Rows: rows, RowCount: rowCount}, nil
}

func (s *QueryService) inScope(qc model.QueryContext, task model.Task) bool {
	switch qc.Workspace {
	case constants.ScopeAll:
		return s.visibleTo(task)
	case constants.ScopeShared:
		return s.sharedWith(task)
	default:
		id, ok := qc.WorkspaceID()
		if !ok {
			return false
		}
		return task.WorkspaceID == id
	}
}

func matchesSearch(task model.Task, search string) bool {
	term := strings.ToLower(strings.TrimSpace(search))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(task.Name), term) {
		return true
	}
	if strings.Contains(strings.ToLower(task.Description), term) {
		return true
	}
	if _, err := strconv.ParseInt(term, 10, 64); err == nil {
		return strings.Contains(strconv.FormatInt(task.ID, 10), term)
	}
	return false
}

func matchesFilters(task model.Task, filters model.FilterModel) bool {
	for field, spec := range filters {
		if !matchesFilter(task, field, spec) {
			return false
		}
	}
	return true
}

func matchesFilter(task model.Task, field string, spec model.FilterSpec) bool {
	switch spec.Kind {
	case model.FilterKindSet:
		return matchesSetFilter(task, field, spec)
	case model.FilterKindText:
		return matchesTextFilter(task, field, spec)
	case model.FilterKindDate:
		return matchesDateFilter(task, field, spec)
	default:
		// Unknown kinds never reach here through the normalizer; match
		// everything rather than dropping rows on bad input.
		return true
	}
}

func matchesSetFilter(task model.Task, field string, spec model.FilterSpec) bool {
	switch field {
	case constants.FieldUsers:
		return intersects(task.UserIDs, spec)
	case constants.FieldTags:
		return intersects(task.TagIDs, spec)
	case constants.FieldCategory:
		return containsID(task.CategoryID, spec)
	case constants.FieldStatus:
		return containsID(task.StatusID, spec)
	case constants.FieldPriority:
		return containsID(task.PriorityID, spec)
	case constants.FieldSpot:
		return containsID(task.SpotID, spec)
	case constants.FieldApprovalStatus:
		for _, v := range spec.Values {
			if v == task.ApprovalStatus {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// intersects implements the OR semantics for set-valued record fields: the
// filter matches when the filter set and the record set overlap at all, not
// only on an exact or subset match.
func intersects(recordIDs []int64, spec model.FilterSpec) bool {
	if len(spec.IDs) > 0 {
		for _, want := range spec.IDs {
			for _, have := range recordIDs {
				if want == have {
					return true
				}
			}
		}
		return false
	}
	if len(spec.Values) > 0 {
		for _, want := range spec.Values {
			for _, have := range recordIDs {
				if want == strconv.FormatInt(have, 10) {
					return true
				}
			}
		}
		return false
	}
	return false
}

func containsID(recordID int64, spec model.FilterSpec) bool {
	if len(spec.IDs) > 0 {
		for _, want := range spec.IDs {
			if want == recordID {
				return true
			}
		}
		return false
	}
	if len(spec.Values) > 0 {
		have := strconv.FormatInt(recordID, 10)
		for _, want := range spec.Values {
			if want == have {
				return true
			}
		}
		return false
	}
	return false
}

func matchesTextFilter(task model.Task, field string, spec model.FilterSpec) bool {
	term := strings.ToLower(strings.TrimSpace(spec.Text))
	if term == "" {
		return true
	}
	switch field {
	case constants.FieldName:
		return strings.Contains(strings.ToLower(task.Name), term)
	default:
		return true
	}
}

func matchesDateFilter(task model.Task, field string, spec model.FilterSpec) bool {
	if field != constants.FieldDueDate {
		return true
	}
	if spec.From == nil && spec.To == nil {
		return true
	}
	if task.DueDate == nil {
		return false
	}
	if spec.From != nil && task.DueDate.Before(*spec.From) {
		return false
	}
	if spec.To != nil && task.DueDate.After(*spec.To) {
		return false
	}
	return true
}

// sortRows orders the filtered set. With no explicit sort model the order is
// recency-first: updated_at descending with missing values sorting before all
// real dates, created_at as tiebreak, id last so the order is deterministic.
func sortRows(rows []model.Task, specs []model.SortSpec) {
	if len(specs) == 0 {
		specs = []model.SortSpec{
			{Field: "updated_at", Descending: true},
			{Field: "created_at", Descending: true},
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, spec := range specs {
			c := compareField(rows[i], rows[j], spec.Field)
			if c == 0 {
				continue
			}
			if spec.Descending {
				return c > 0
			}
			return c < 0
		}
		return rows[i].ID < rows[j].ID
	})
}

func compareField(a, b model.Task, field string) int {
	switch field {
	case "updated_at":
		return compareTimes(a.UpdatedAt, b.UpdatedAt)
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	case constants.FieldDueDate:
		return compareTimes(a.DueDate, b.DueDate)
	case constants.FieldName:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case constants.FieldStatus:
		return compareInts(a.StatusID, b.StatusID)
	case constants.FieldPriority:
		return compareInts(a.PriorityID, b.PriorityID)
	case constants.FieldCategory:
		return compareInts(a.CategoryID, b.CategoryID)
	case constants.FieldSpot:
		return compareInts(a.SpotID, b.SpotID)
	case "id":
		return compareInts(a.ID, b.ID)
	default:
		return 0
	}
}

// compareTimes treats a missing date as before all real dates, so sorting
// never has to special-case nulls upstream.
func compareTimes(a, b *time.Time) int {
	at, bt := time.Time{}, time.Time{}
	if a != nil {
		at = *a
	}
	if b != nil {
		bt = *b
	}
	if at.Before(bt) {
		return -1
	}
	if at.After(bt) {
		return 1
	}
	return 0
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
