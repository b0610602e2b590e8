package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/projecthub-api/internal/constants"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrInvalidProjectName = errors.New("project name cannot be empty")
	ErrProjectKeyTaken    = errors.New("project key already exists")
	ErrMemberNotFound     = errors.New("project member not found")
	ErrLastOwner          = errors.New("cannot remove the last owner")
)

// ProjectService provides business logic for project and membership
// operations.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	authorizer  *Authorizer
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, authorizer *Authorizer) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		authorizer:  authorizer,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Key         string
	Description string
}

// keyInsertAttempts bounds the rederive-and-retry loop when concurrent
// creations race for the same derived key.
const keyInsertAttempts = 3

// CreateProject creates a project and its owner membership atomically. An
// explicit key is sanitized and must be free; a missing key is derived from
// the name and deduplicated with a numeric suffix. A duplicate-key insert
// means a concurrent creation claimed the key after the availability check:
// an explicit key surfaces the conflict, a derived key is rederived against
// the winner's row and retried.
func (s *ProjectService) CreateProject(ownerID uint64, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidProjectName
	}

	explicitKey := strings.TrimSpace(input.Key) != ""
	var key string
	if explicitKey {
		key = utils.SanitizeProjectKey(input.Key)
		taken, err := s.projectRepo.ExistsByKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to check project key: %w", err)
		}
		if taken {
			return nil, ErrProjectKeyTaken
		}
	}

	for attempt := 0; attempt < keyInsertAttempts; attempt++ {
		if !explicitKey {
			derived, err := s.deriveKey(input.Name)
			if err != nil {
				return nil, err
			}
			key = derived
		}

		project := &models.Project{
			Name:        name,
			Key:         key,
			Description: input.Description,
			OwnerID:     ownerID,
		}

		owner := &models.ProjectMember{
			UserID:   ownerID,
			Role:     models.RoleOwner,
			JoinedAt: time.Now(),
		}

		err := s.projectRepo.CreateWithOwner(project, owner)
		if err == nil {
			return project, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if explicitKey {
				return nil, ErrProjectKeyTaken
			}
			continue
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return nil, ErrProjectKeyTaken
}

// ListProjects returns the projects the user is a member of, with the role
// held in each.
func (s *ProjectService) ListProjects(userID uint64) ([]models.ProjectMember, error) {
	memberships, err := s.projectRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return memberships, nil
}

// GetProject returns a project the actor is a member of.
func (s *ProjectService) GetProject(actorID, projectID uint64) (*models.Project, error) {
	if err := s.authorizer.RequireMember(actorID, projectID); err != nil {
		return nil, err
	}

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	return project, nil
}

// UpdateProjectInput represents a partial project update. Nil fields are left
// untouched.
type UpdateProjectInput struct {
	Name        *string
	Description *string
}

// UpdateProject applies the non-nil patch fields. Requires the ADMIN role.
func (s *ProjectService) UpdateProject(actorID, projectID uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.GetProject(actorID, projectID)
	if err != nil {
		return nil, err
	}

	if _, err := s.authorizer.RequireRole(actorID, projectID, models.RoleAdmin); err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, ErrInvalidProjectName
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return project, nil
}

// DeleteProject removes a project and everything under it. Requires the OWNER
// role.
func (s *ProjectService) DeleteProject(actorID, projectID uint64) error {
	if _, err := s.GetProject(actorID, projectID); err != nil {
		return err
	}

	if _, err := s.authorizer.RequireRole(actorID, projectID, models.RoleOwner); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// ListMembers returns all members of a project the actor belongs to.
func (s *ProjectService) ListMembers(actorID, projectID uint64) ([]models.ProjectMember, error) {
	if err := s.authorizer.RequireMember(actorID, projectID); err != nil {
		return nil, err
	}

	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}

	return members, nil
}

// RemoveMember removes a member from the project. Requires the ADMIN role.
// Removing the last remaining OWNER is refused.
func (s *ProjectService) RemoveMember(actorID, projectID, targetUserID uint64) error {
	if _, err := s.authorizer.RequireRole(actorID, projectID, models.RoleAdmin); err != nil {
		return err
	}

	if err := s.projectRepo.RemoveMember(projectID, targetUserID); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrMemberNotFound
		case errors.Is(err, repository.ErrLastOwner):
			return ErrLastOwner
		}
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// deriveKey builds a unique key from the project name by appending an
// increasing numeric suffix until no existing key matches. The suffix eats
// into the base when the combined length would exceed the cap.
func (s *ProjectService) deriveKey(name string) (string, error) {
	base := utils.ProjectKeyBase(name)
	candidate := base

	for suffix := 1; ; suffix++ {
		taken, err := s.projectRepo.ExistsByKey(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check project key: %w", err)
		}
		if !taken {
			return candidate, nil
		}

		digits := strconv.Itoa(suffix)
		trimmed := base
		if len(trimmed)+len(digits) > constants.ProjectKeyMaxLength {
			cut := constants.ProjectKeyMaxLength - len(digits)
			if cut < 1 {
				cut = 1
			}
			trimmed = trimmed[:cut]
		}
		candidate = trimmed + digits
	}
}
