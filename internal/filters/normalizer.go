package filters

import (
	"strconv"
	"time"

	"taskgrid.com/taskgrid/internal/constants"
	model "taskgrid.com/taskgrid/internal/models"
)

// fieldKinds is the whitelist of filterable fields. Unknown keys are dropped
// silently so malformed persisted state from an older schema cannot break a
// query.
var fieldKinds = map[string]model.FilterKind{
	constants.FieldCategory:       model.FilterKindSet,
	constants.FieldStatus:         model.FilterKindSet,
	constants.FieldPriority:       model.FilterKindSet,
	constants.FieldSpot:           model.FilterKindSet,
	constants.FieldUsers:          model.FilterKindSet,
	constants.FieldTags:           model.FilterKindSet,
	constants.FieldApprovalStatus: model.FilterKindSet,
	constants.FieldName:           model.FilterKindText,
	constants.FieldDueDate:        model.FilterKindDate,
}

// numericSetFields are set filters whose values are record ids rather than
// strings.
var numericSetFields = map[string]bool{
	constants.FieldCategory: true,
	constants.FieldStatus:   true,
	constants.FieldPriority: true,
	constants.FieldSpot:     true,
	constants.FieldUsers:    true,
	constants.FieldTags:     true,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToQueryModel converts the grid representation into the typed query
// representation. Set-filter values on numeric fields are coerced to int64
// unless any value fails coercion, in which case the whole set stays as
// strings so mixed-type legacy data keeps matching instead of crashing.
func ToQueryModel(grid model.GridModel) model.FilterModel {
	if len(grid) == 0 {
		return nil
	}

	query := make(model.FilterModel, len(grid))
	for field, gf := range grid {
		kind, ok := fieldKinds[field]
		if !ok {
			continue
		}

		switch kind {
		case model.FilterKindSet:
			spec := model.FilterSpec{Kind: model.FilterKindSet}
			if numericSetFields[field] {
				ids, ok := coerceIDs(gf.Values)
				if ok {
					spec.IDs = ids
				} else {
					spec.Values = append([]string(nil), gf.Values...)
				}
			} else {
				spec.Values = append([]string(nil), gf.Values...)
			}
			query[field] = spec
		case model.FilterKindText:
			query[field] = model.FilterSpec{Kind: model.FilterKindText, Text: gf.Filter}
		case model.FilterKindDate:
			query[field] = model.FilterSpec{
				Kind: model.FilterKindDate,
				From: parseDate(gf.DateFrom),
				To:   parseDate(gf.DateTo),
			}
		}
	}

	if len(query) == 0 {
		return nil
	}
	return query
}

// ToGridModel converts the typed query representation back into the
// string-typed grid representation used by the rendering surface and the
// persistence layer.
func ToGridModel(query model.FilterModel) model.GridModel {
	if len(query) == 0 {
		return nil
	}

	grid := make(model.GridModel, len(query))
	for field, spec := range query {
		kind, ok := fieldKinds[field]
		if !ok || kind != spec.Kind {
			continue
		}

		switch spec.Kind {
		case model.FilterKindSet:
			gf := model.GridFilter{FilterType: "set"}
			if len(spec.IDs) > 0 {
				gf.Values = make([]string, 0, len(spec.IDs))
				for _, id := range spec.IDs {
					gf.Values = append(gf.Values, strconv.FormatInt(id, 10))
				}
			} else {
				gf.Values = append([]string(nil), spec.Values...)
			}
			grid[field] = gf
		case model.FilterKindText:
			grid[field] = model.GridFilter{FilterType: "text", Filter: spec.Text}
		case model.FilterKindDate:
			gf := model.GridFilter{FilterType: "date"}
			if spec.From != nil {
				gf.DateFrom = spec.From.Format(time.RFC3339)
			}
			if spec.To != nil {
				gf.DateTo = spec.To.Format(time.RFC3339)
			}
			grid[field] = gf
		}
	}

	if len(grid) == 0 {
		return nil
	}
	return grid
}

func coerceIDs(values []string) ([]int64, bool) {
	if len(values) == 0 {
		return nil, true
	}
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
