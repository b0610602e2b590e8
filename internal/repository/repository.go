package repository

import (
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
)

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// CreateWithOwner creates a project and its owner membership atomically
	CreateWithOwner(project *models.Project, owner *models.ProjectMember) error

	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// ExistsByKey reports whether a project with the given key exists,
	// compared case-insensitively
	ExistsByKey(key string) (bool, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete deletes a project and cascades to its members, invites and tasks
	Delete(id uint64) error

	// AddMember adds a member to a project
	AddMember(member *models.ProjectMember) error

	// FindMember finds a specific project member
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembers lists all members of a project
	ListMembers(projectID uint64) ([]models.ProjectMember, error)

	// ListMembersByUserID lists all memberships of a user
	ListMembersByUserID(userID uint64) ([]models.ProjectMember, error)

	// RemoveMember deletes a membership, refusing to remove the last owner
	RemoveMember(projectID, userID uint64) error
}

// InviteRepository defines the interface for project invite data access
type InviteRepository interface {
	// CreatePending persists a new invite, failing when a pending invite for
	// the same project and email already exists; the check and the insert are
	// one atomic operation
	CreatePending(invite *models.ProjectInvite, now time.Time) error

	// FindByToken finds an invite by its token
	FindByToken(token string) (*models.ProjectInvite, error)

	// Accept marks the invite accepted and, unless the user is already a
	// member, creates the membership, all within one transaction
	Accept(token string, userID uint64, now time.Time) (*models.ProjectInvite, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// CreateAtColumnTail assigns the next order index in the task's
	// (project, status) column and creates the task atomically
	CreateAtColumnTail(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// ListByProject lists a project's tasks ordered by order index
	ListByProject(projectID uint64) ([]models.Task, error)

	// ListColumn lists the tasks of one (project, status) column in order
	ListColumn(projectID uint64, status models.TaskStatus) ([]models.Task, error)

	// Update updates a task in place
	Update(task *models.Task) error

	// SaveAtColumnTail re-appends the task at the tail of its current
	// (project, status) column and saves it atomically
	SaveAtColumnTail(task *models.Task) error

	// Delete soft deletes a task
	Delete(id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)
}
