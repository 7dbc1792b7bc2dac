package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// TaskRepository handles CRUD and aggregate queries for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func withProject(db *gorm.DB) *gorm.DB {
	return db.Preload("Project", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name")
	})
}

func (r *TaskRepository) List(ctx context.Context, q ListQuery) (Page[model.Task], error) {
	var page Page[model.Task]
	if err := q.check(taskFields); err != nil {
		return page, err
	}
	db := q.filter(r.db.WithContext(ctx).Model(&model.Task{}), taskFields).Session(&gorm.Session{})
	if err := db.Count(&page.Count).Error; err != nil {
		return page, fmt.Errorf("count tasks: %w", err)
	}
	if err := withProject(q.paginate(q.order(db, taskFields))).Find(&page.Items).Error; err != nil {
		return page, fmt.Errorf("list tasks: %w", err)
	}
	return page, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint) (*model.Task, error) {
	var task model.Task
	if err := withProject(r.db.WithContext(ctx)).First(&task, id).Error; err != nil {
		return nil, fmt.Errorf("find task %d: %w", id, notFound(err))
	}
	return &task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Save(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Task{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// CountByStatus returns a count for every task status, zero-filled.
func (r *TaskRepository) CountByStatus(ctx context.Context) (map[model.TaskStatus]int64, error) {
	var rows []struct {
		Status model.TaskStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}
	out := make(map[model.TaskStatus]int64, len(model.TaskStatuses))
	for _, s := range model.TaskStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

// CountOverdue counts tasks due before today in one of the given statuses.
func (r *TaskRepository) CountOverdue(ctx context.Context, today model.Date, statuses []model.TaskStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("due_date < ? AND status IN ?", today, statuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count overdue tasks: %w", err)
	}
	return count, nil
}

// CountCompletedOn counts tasks completed on the given day.
func (r *TaskRepository) CountCompletedOn(ctx context.Context, day model.Date) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("completed_date = ? AND status = ?", day, model.TaskCompleted).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return count, nil
}

// Recent returns the newest tasks with their project names.
func (r *TaskRepository) Recent(ctx context.Context, limit int) ([]model.Task, error) {
	var tasks []model.Task
	if err := withProject(r.db.WithContext(ctx)).Order("created_at DESC, id DESC").Limit(limit).
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}
	return tasks, nil
}

// Overdue returns unfinished tasks due before today, most overdue first.
// A non-positive limit returns all of them.
func (r *TaskRepository) Overdue(ctx context.Context, today model.Date, limit int) ([]model.Task, error) {
	var tasks []model.Task
	db := withProject(r.db.WithContext(ctx)).
		Where("due_date < ? AND status <> ?", today, model.TaskCompleted).
		Order("due_date ASC, id ASC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("overdue tasks: %w", err)
	}
	return tasks, nil
}

// CompletedSince returns tasks marked COMPLETED and updated at or after since.
func (r *TaskRepository) CompletedSince(ctx context.Context, since time.Time, limit int) ([]model.Task, error) {
	var tasks []model.Task
	if err := withProject(r.db.WithContext(ctx)).
		Where("status = ? AND updated_at >= ?", model.TaskCompleted, since).
		Order("updated_at DESC, id DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("completed tasks: %w", err)
	}
	return tasks, nil
}

// DueBetween returns tasks due in [from, to], soonest first. Used by the calendar page.
func (r *TaskRepository) DueBetween(ctx context.Context, from, to model.Date) ([]model.Task, error) {
	var tasks []model.Task
	if err := withProject(r.db.WithContext(ctx)).
		Where("due_date >= ? AND due_date <= ?", from, to).
		Order("due_date ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("tasks due between: %w", err)
	}
	return tasks, nil
}
