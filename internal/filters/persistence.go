package filters

import (
	"context"
	"encoding/json"
	"log"

	"taskgrid.com/taskgrid/internal/constants"
	model "taskgrid.com/taskgrid/internal/models"
	repository "taskgrid.com/taskgrid/internal/repositories"
)

// FilterService saves and restores per-scope grid state across sessions.
// Loads are defensive: corrupted or unparseable payloads degrade to "no
// filter" instead of surfacing an error to the grid.
type FilterService struct {
	states *repository.StateRepository
}

func NewFilterService(states *repository.StateRepository) *FilterService {
	return &FilterService{states: states}
}

func (s *FilterService) SaveFilter(ctx context.Context, scopeKey string, grid model.GridModel) error {
	payload, err := json.Marshal(grid)
	if err != nil {
		return err
	}
	return s.states.Save(ctx, constants.StateKindFilter, scopeKey, string(payload))
}

// LoadFilter reads the persisted grid model for a scope and passes it through
// the whitelist round trip, dropping fields an older schema version may have
// written.
func (s *FilterService) LoadFilter(ctx context.Context, scopeKey string) (model.GridModel, error) {
	payload, ok, err := s.states.Load(ctx, constants.StateKindFilter, scopeKey)
	if err != nil {
		return nil, err
	}
	if !ok || payload == "" {
		return nil, nil
	}

	var grid model.GridModel
	if err := json.Unmarshal([]byte(payload), &grid); err != nil {
		log.Printf("filters: discarding corrupt filter state for scope %q: %v", scopeKey, err)
		return nil, nil
	}
	return ToGridModel(ToQueryModel(grid)), nil
}

func (s *FilterService) SaveColumns(ctx context.Context, scopeKey string, fields []string) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return s.states.Save(ctx, constants.StateKindColumns, scopeKey, string(payload))
}

func (s *FilterService) LoadColumns(ctx context.Context, scopeKey string) ([]string, error) {
	payload, ok, err := s.states.Load(ctx, constants.StateKindColumns, scopeKey)
	if err != nil {
		return nil, err
	}
	if !ok || payload == "" {
		return nil, nil
	}

	var fields []string
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		log.Printf("filters: discarding corrupt column state for scope %q: %v", scopeKey, err)
		return nil, nil
	}
	return fields, nil
}
