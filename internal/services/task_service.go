package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidTaskStatus = errors.New("invalid task status")
	ErrInvalidPriority   = errors.New("invalid task priority")
	ErrAssigneeNotFound  = errors.New("assignee not found")
	ErrCannotDeleteTask  = errors.New("only admins or the reporter can delete a task")
)

// TaskService maintains the per-status ordered task board of each project.
type TaskService struct {
	taskRepo   repository.TaskRepository
	userRepo   repository.UserRepository
	authorizer *Authorizer
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, authorizer *Authorizer) *TaskService {
	return &TaskService{
		taskRepo:   taskRepo,
		userRepo:   userRepo,
		authorizer: authorizer,
	}
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	AssigneeID  *uint64
}

// CreateTask creates a task at the tail of its initial status column. The
// reporter is always the creating actor.
func (s *TaskService) CreateTask(actorID, projectID uint64, input CreateTaskInput) (*models.Task, error) {
	if err := s.authorizer.RequireMember(actorID, projectID); err != nil {
		return nil, err
	}

	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, ErrInvalidTaskStatus
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if input.AssigneeID != nil {
		if err := s.resolveAssignee(*input.AssigneeID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		ProjectID:   projectID,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		AssigneeID:  input.AssigneeID,
		ReporterID:  actorID,
		DueDate:     input.DueDate,
	}

	if err := s.taskRepo.CreateAtColumnTail(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// ListTasks returns a project's tasks in board order.
func (s *TaskService) ListTasks(actorID, projectID uint64) ([]models.Task, error) {
	if err := s.authorizer.RequireMember(actorID, projectID); err != nil {
		return nil, err
	}

	tasks, err := s.taskRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// GetTask returns a task; the owning project is resolved from the task row to
// perform the membership check.
func (s *TaskService) GetTask(actorID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Assignee", "Reporter")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authorizer.RequireMember(actorID, task.ProjectID); err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateTaskInput represents a partial task update. Nil fields are left
// untouched, except DueDate which always overwrites so a due date can be
// cleared.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	DueDate     *time.Time
	AssigneeID  *uint64
}

// UpdateTask applies a patch to a task. Requires at least the MEMBER role. A
// status change re-appends the task at the tail of the destination column.
func (s *TaskService) UpdateTask(actorID, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.getOwnedTask(actorID, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizer.RequireRole(actorID, task.ProjectID, models.RoleMember); err != nil {
		return nil, err
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.AssigneeID != nil {
		if err := s.resolveAssignee(*input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}

	// Unlike the other fields, the due date is written unconditionally so a
	// patch can clear it.
	task.DueDate = input.DueDate

	statusChanged := false
	if input.Status != nil && *input.Status != task.Status {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
		statusChanged = true
	}

	if err := s.saveTask(task, statusChanged); err != nil {
		return nil, err
	}

	return task, nil
}

// MoveTaskInput represents a board move: a status change, an explicit
// position, or both.
type MoveTaskInput struct {
	Status     *models.TaskStatus
	OrderIndex *int
}

// MoveTask moves a task on the board. Requires at least the MEMBER role. A
// status change re-appends at the destination tail; an explicit order index
// overwrites the task's position directly without renumbering siblings.
func (s *TaskService) MoveTask(actorID, taskID uint64, input MoveTaskInput) (*models.Task, error) {
	task, err := s.getOwnedTask(actorID, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizer.RequireRole(actorID, task.ProjectID, models.RoleMember); err != nil {
		return nil, err
	}

	statusChanged := false
	if input.Status != nil && *input.Status != task.Status {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
		statusChanged = true
	}

	if statusChanged {
		if err := s.taskRepo.SaveAtColumnTail(task); err != nil {
			return nil, fmt.Errorf("failed to move task: %w", err)
		}
	}

	if input.OrderIndex != nil {
		task.OrderIndex = *input.OrderIndex
		if err := s.taskRepo.Update(task); err != nil {
			return nil, fmt.Errorf("failed to move task: %w", err)
		}
	} else if !statusChanged {
		if err := s.taskRepo.Update(task); err != nil {
			return nil, fmt.Errorf("failed to move task: %w", err)
		}
	}

	return task, nil
}

// AssignTask sets or clears a task's assignee. Requires at least the MEMBER
// role.
func (s *TaskService) AssignTask(actorID, taskID uint64, assigneeID *uint64) (*models.Task, error) {
	task, err := s.getOwnedTask(actorID, taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizer.RequireRole(actorID, task.ProjectID, models.RoleMember); err != nil {
		return nil, err
	}

	if assigneeID != nil {
		if err := s.resolveAssignee(*assigneeID); err != nil {
			return nil, err
		}
	}
	task.AssigneeID = assigneeID

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	return task, nil
}

// DeleteTask deletes a task. Permitted for project admins and for the task's
// own reporter.
func (s *TaskService) DeleteTask(actorID, taskID uint64) error {
	task, err := s.getOwnedTask(actorID, taskID)
	if err != nil {
		return err
	}

	isAdmin, err := s.authorizer.HasRole(actorID, task.ProjectID, models.RoleAdmin)
	if err != nil {
		return err
	}

	if !isAdmin && task.ReporterID != actorID {
		return ErrCannotDeleteTask
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// saveTask persists a patched task, re-appending at the destination column
// tail when the patch changed the status.
func (s *TaskService) saveTask(task *models.Task, statusChanged bool) error {
	if statusChanged {
		if err := s.taskRepo.SaveAtColumnTail(task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		return nil
	}

	if err := s.taskRepo.Update(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// getOwnedTask fetches a task without preloaded relations (mutations save the
// bare row) and verifies the actor belongs to its project.
func (s *TaskService) getOwnedTask(actorID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.authorizer.RequireMember(actorID, task.ProjectID); err != nil {
		return nil, err
	}

	return task, nil
}

// resolveAssignee fails with ErrAssigneeNotFound when the id does not belong
// to a known user.
func (s *TaskService) resolveAssignee(userID uint64) error {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to resolve assignee: %w", err)
	}
	return nil
}
