package service

import (
	"context"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
)

// CategoryService provides CRUD for project categories.
type CategoryService struct {
	repo    *repository.CategoryRepository
	onWrite invalidators
}

func NewCategoryService(repo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

// OnWrite registers inv to run after every successful write.
func (s *CategoryService) OnWrite(inv Invalidator) {
	s.onWrite = append(s.onWrite, inv)
}

func (s *CategoryService) List(ctx context.Context, q repository.ListQuery) (repository.Page[model.Category], error) {
	return s.repo.List(ctx, q)
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*model.Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if err := s.check(ctx, &in, 0); err != nil {
		return nil, err
	}
	var category model.Category
	in.apply(&category)
	if err := s.repo.Create(ctx, &category); err != nil {
		return nil, err
	}
	s.onWrite.run(ctx)
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryInput) (*model.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, category, in)
}

// Patch applies mutate to the stored values and saves the result.
func (s *CategoryService) Patch(ctx context.Context, id uint, mutate func(*CategoryInput) error) (*model.Category, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in := CategoryInputFrom(category)
	if err := mutate(&in); err != nil {
		return nil, err
	}
	return s.save(ctx, category, in)
}

func (s *CategoryService) save(ctx context.Context, category *model.Category, in CategoryInput) (*model.Category, error) {
	if err := s.check(ctx, &in, category.ID); err != nil {
		return nil, err
	}
	in.apply(category)
	if err := s.repo.Save(ctx, category); err != nil {
		return nil, err
	}
	s.onWrite.run(ctx)
	return category, nil
}

// Delete removes a category. Its projects stay, with the category cleared.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.onWrite.run(ctx)
	return nil
}

func (s *CategoryService) check(ctx context.Context, in *CategoryInput, id uint) error {
	errs := in.validate()
	if !errs.Has("name") {
		taken, err := s.repo.NameTaken(ctx, in.Name, id)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("name", "project category with this name already exists.")
		}
	}
	return errs.Err()
}
