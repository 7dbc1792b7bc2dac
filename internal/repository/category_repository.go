package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"project-tracker/internal/model"
)

// CategoryRepository manages project categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List(ctx context.Context, q ListQuery) (Page[model.Category], error) {
	var page Page[model.Category]
	db := q.filter(r.db.WithContext(ctx).Model(&model.Category{}), categoryFields).Session(&gorm.Session{})
	if err := db.Count(&page.Count).Error; err != nil {
		return page, fmt.Errorf("count categories: %w", err)
	}
	if err := q.paginate(q.order(db, categoryFields)).Find(&page.Items).Error; err != nil {
		return page, fmt.Errorf("list categories: %w", err)
	}
	return page, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uint) (*model.Category, error) {
	var category model.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, fmt.Errorf("find category %d: %w", id, notFound(err))
	}
	return &category, nil
}

// NameTaken reports whether another category already uses name.
func (r *CategoryRepository) NameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	var count int64
	db := r.db.WithContext(ctx).Model(&model.Category{}).Where("name = ?", name)
	if exceptID != 0 {
		db = db.Where("id <> ?", exceptID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check category name: %w", err)
	}
	return count > 0, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Save(ctx context.Context, category *model.Category) error {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

// Delete removes a category; projects keep existing with the category cleared.
func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Category{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete category %d: %w", id, ErrNotFound)
	}
	return nil
}

// Exists is used to validate foreign keys before writing projects.
func (r *CategoryRepository) Exists(ctx context.Context, id uint) (bool, error) {
	_, err := r.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
