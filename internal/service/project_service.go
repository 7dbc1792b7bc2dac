package service

import (
	"context"
	"fmt"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
)

// ProjectService provides CRUD for projects. Returned projects carry their
// category and task statuses so progress can be computed.
type ProjectService struct {
	projects   *repository.ProjectRepository
	categories *repository.CategoryRepository
	onWrite    invalidators
}

func NewProjectService(projects *repository.ProjectRepository, categories *repository.CategoryRepository) *ProjectService {
	return &ProjectService{projects: projects, categories: categories}
}

// OnWrite registers inv to run after every successful write.
func (s *ProjectService) OnWrite(inv Invalidator) {
	s.onWrite = append(s.onWrite, inv)
}

func (s *ProjectService) List(ctx context.Context, q repository.ListQuery) (repository.Page[model.Project], error) {
	return s.projects.List(ctx, q)
}

func (s *ProjectService) Get(ctx context.Context, id uint) (*model.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// GetWithTasks loads a project with its full task rows, for the detail page.
func (s *ProjectService) GetWithTasks(ctx context.Context, id uint) (*model.Project, error) {
	return s.projects.GetWithTasks(ctx, id)
}

func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*model.Project, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	var project model.Project
	in.apply(&project)
	if err := s.projects.Create(ctx, &project); err != nil {
		return nil, err
	}
	s.onWrite.run(ctx)
	return s.projects.GetByID(ctx, project.ID)
}

// Update replaces every writable field of the project.
func (s *ProjectService) Update(ctx context.Context, id uint, in ProjectInput) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, project, in)
}

// Patch applies mutate to the stored values and saves the result.
func (s *ProjectService) Patch(ctx context.Context, id uint, mutate func(*ProjectInput) error) (*model.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in := ProjectInputFrom(project)
	if err := mutate(&in); err != nil {
		return nil, err
	}
	return s.save(ctx, project, in)
}

func (s *ProjectService) save(ctx context.Context, project *model.Project, in ProjectInput) (*model.Project, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	in.apply(project)
	if err := s.projects.Save(ctx, project); err != nil {
		return nil, err
	}
	s.onWrite.run(ctx)
	return s.projects.GetByID(ctx, project.ID)
}

// Delete removes the project and, through the foreign key, its tasks.
func (s *ProjectService) Delete(ctx context.Context, id uint) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.onWrite.run(ctx)
	return nil
}

func (s *ProjectService) check(ctx context.Context, in *ProjectInput) error {
	errs := in.validate()
	if in.CategoryID != nil {
		ok, err := s.categories.Exists(ctx, *in.CategoryID)
		if err != nil {
			return err
		}
		if !ok {
			errs.Add("category_id", invalidPK(*in.CategoryID))
		}
	}
	return errs.Err()
}

func invalidPK(id uint) string {
	return fmt.Sprintf(`Invalid pk "%d" - object does not exist.`, id)
}
