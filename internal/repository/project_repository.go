package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// ProjectRepository handles CRUD and aggregate queries for projects.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// TaskCount is the number of tasks and completed tasks of one project.
type TaskCount struct {
	ProjectID uint
	Total     int64
	Completed int64
}

// withProgress preloads the category and the minimal task columns needed to
// compute progress.
func withProgress(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "project_id", "status")
	})
}

func (r *ProjectRepository) List(ctx context.Context, q ListQuery) (Page[model.Project], error) {
	var page Page[model.Project]
	if err := q.check(projectFields); err != nil {
		return page, err
	}
	db := q.filter(r.db.WithContext(ctx).Model(&model.Project{}), projectFields).Session(&gorm.Session{})
	if err := db.Count(&page.Count).Error; err != nil {
		return page, fmt.Errorf("count projects: %w", err)
	}
	if err := withProgress(q.paginate(q.order(db, projectFields))).Find(&page.Items).Error; err != nil {
		return page, fmt.Errorf("list projects: %w", err)
	}
	return page, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	if err := withProgress(r.db.WithContext(ctx)).First(&project, id).Error; err != nil {
		return nil, fmt.Errorf("find project %d: %w", id, notFound(err))
	}
	return &project, nil
}

// GetWithTasks loads a project with its full task list, newest first.
func (r *ProjectRepository) GetWithTasks(ctx context.Context, id uint) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Preload("Category").Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at DESC, id DESC")
	}).First(&project, id).Error
	if err != nil {
		return nil, fmt.Errorf("find project %d: %w", id, notFound(err))
	}
	return &project, nil
}

func (r *ProjectRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check project: %w", err)
	}
	return count > 0, nil
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error; err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Save(ctx context.Context, project *model.Project) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error; err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// Delete removes a project; its tasks go with it through the FK cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Project{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete project %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *ProjectRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return count, nil
}

// CountByStatus returns a count for every project status, zero-filled.
func (r *ProjectRepository) CountByStatus(ctx context.Context) (map[model.ProjectStatus]int64, error) {
	var rows []struct {
		Status model.ProjectStatus
		Total  int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Project{}).
		Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count projects by status: %w", err)
	}
	out := make(map[model.ProjectStatus]int64, len(model.ProjectStatuses))
	for _, s := range model.ProjectStatuses {
		out[s] = 0
	}
	for _, row := range rows {
		out[row.Status] = row.Total
	}
	return out, nil
}

// CountOverdue counts projects past their estimated completion date while in
// one of the given statuses.
func (r *ProjectRepository) CountOverdue(ctx context.Context, today model.Date, statuses []model.ProjectStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("estimated_completion_date < ? AND status IN ?", today, statuses).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count overdue projects: %w", err)
	}
	return count, nil
}

// Recent returns the newest projects with progress data loaded.
func (r *ProjectRepository) Recent(ctx context.Context, limit int) ([]model.Project, error) {
	var projects []model.Project
	if err := withProgress(r.db.WithContext(ctx)).Order("created_at DESC, id DESC").Limit(limit).
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("recent projects: %w", err)
	}
	return projects, nil
}

// CreatedSince returns projects created at or after since, newest first.
func (r *ProjectRepository) CreatedSince(ctx context.Context, since time.Time, limit int) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("created_at >= ?", since).
		Order("created_at DESC, id DESC").Limit(limit).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("new projects: %w", err)
	}
	return projects, nil
}

// CompletedSince returns projects in COMPLETED status updated at or after since.
func (r *ProjectRepository) CompletedSince(ctx context.Context, since time.Time, limit int) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Where("status = ? AND updated_at >= ?", model.ProjectCompleted, since).
		Order("updated_at DESC, id DESC").Limit(limit).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("completed projects: %w", err)
	}
	return projects, nil
}

// All returns every project ordered by name, used by report exports.
func (r *ProjectRepository) All(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.WithContext(ctx).Preload("Category").Order("name ASC, id ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("all projects: %w", err)
	}
	return projects, nil
}

// TaskCounts aggregates total and completed tasks per project in one query.
func (r *ProjectRepository) TaskCounts(ctx context.Context, projectIDs []uint) (map[uint]TaskCount, error) {
	out := make(map[uint]TaskCount, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	var rows []TaskCount
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("project_id, COUNT(*) AS total, SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS completed", model.TaskCompleted).
		Where("project_id IN ?", projectIDs).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("task counts: %w", err)
	}
	for _, row := range rows {
		out[row.ProjectID] = row
	}
	return out, nil
}
