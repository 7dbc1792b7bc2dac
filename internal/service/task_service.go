package service

import (
	"context"
	"time"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
)

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks    *repository.TaskRepository
	projects *repository.ProjectRepository
	onWrite  invalidators
	now      func() time.Time
}

func NewTaskService(tasks *repository.TaskRepository, projects *repository.ProjectRepository) *TaskService {
	return &TaskService{tasks: tasks, projects: projects, now: time.Now}
}

// OnWrite registers inv to run after every successful write.
func (s *TaskService) OnWrite(inv Invalidator) {
	s.onWrite = append(s.onWrite, inv)
}

func (s *TaskService) List(ctx context.Context, q repository.ListQuery) (repository.Page[model.Task], error) {
	return s.tasks.List(ctx, q)
}

func (s *TaskService) Get(ctx context.Context, id uint) (*model.Task, error) {
	return s.tasks.FindByID(ctx, id)
}

// DueBetween lists tasks due in [from, to], for the calendar.
func (s *TaskService) DueBetween(ctx context.Context, from, to model.Date) ([]model.Task, error) {
	return s.tasks.DueBetween(ctx, from, to)
}

func (s *TaskService) Create(ctx context.Context, in TaskInput) (*model.Task, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	var task model.Task
	s.stampCompletion(&in, "")
	in.apply(&task)
	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.onWrite.run(ctx)
	return s.tasks.FindByID(ctx, task.ID)
}

// Update replaces every writable field of the task.
func (s *TaskService) Update(ctx context.Context, id uint, in TaskInput) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, task, in)
}

// Patch applies mutate to the stored values and saves the result.
func (s *TaskService) Patch(ctx context.Context, id uint, mutate func(*TaskInput) error) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in := TaskInputFrom(task)
	if err := mutate(&in); err != nil {
		return nil, err
	}
	return s.save(ctx, task, in)
}

func (s *TaskService) save(ctx context.Context, task *model.Task, in TaskInput) (*model.Task, error) {
	if err := s.check(ctx, &in); err != nil {
		return nil, err
	}
	s.stampCompletion(&in, task.Status)
	in.apply(task)
	task.Project = nil
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	s.onWrite.run(ctx)
	return s.tasks.FindByID(ctx, task.ID)
}

func (s *TaskService) Delete(ctx context.Context, id uint) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	s.onWrite.run(ctx)
	return nil
}

// stampCompletion records today as the completion date when a task moves
// into COMPLETED without one.
func (s *TaskService) stampCompletion(in *TaskInput, previous model.TaskStatus) {
	if in.Status == model.TaskCompleted && previous != model.TaskCompleted && in.CompletedDate == nil {
		in.CompletedDate = model.DatePtr(model.DateOf(s.now()))
	}
}

func (s *TaskService) check(ctx context.Context, in *TaskInput) error {
	errs := in.validate()
	if in.Project != 0 {
		ok, err := s.projects.Exists(ctx, in.Project)
		if err != nil {
			return err
		}
		if !ok {
			errs.Add("project", invalidPK(in.Project))
		}
	}
	return errs.Err()
}
