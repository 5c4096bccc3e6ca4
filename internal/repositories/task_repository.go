package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "taskgrid.com/taskgrid/internal/models"
)

// TaskRepository persists the local task snapshot so a restart can rehydrate
// the record store without refetching from the backend.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) SaveTasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	rows := make([]model.Task, len(tasks))
	copy(rows, tasks)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows).Error
}

func (r *TaskRepository) DeleteTask(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Task{}, id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("task_id = ?", id).
		Delete(&model.TagEdge{}).Error
}

func (r *TaskRepository) LoadAll(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	err := r.db.WithContext(ctx).Find(&tasks).Error
	return tasks, err
}

// ReplaceTagEdges swaps the persisted edge set for one task. The primary key
// spans (task_id, tag_id), so duplicate pairs cannot exist.
func (r *TaskRepository) ReplaceTagEdges(ctx context.Context, taskID int64, tagIDs []int64) error {
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Delete(&model.TagEdge{}).Error; err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		return nil
	}
	edges := make([]model.TagEdge, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		edges = append(edges, model.TagEdge{TaskID: taskID, TagID: tagID})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&edges).Error
}

func (r *TaskRepository) LoadTagEdges(ctx context.Context) ([]model.TagEdge, error) {
	var edges []model.TagEdge
	err := r.db.WithContext(ctx).Find(&edges).Error
	return edges, err
}
