package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNotProjectMember = errors.New("user is not a project member")
	ErrInsufficientRole = errors.New("user role is insufficient for this action")
)

// Authorizer answers whether an actor may act on a project. It is the single
// gate every mutating service operation runs through.
type Authorizer struct {
	projectRepo repository.ProjectRepository
}

// NewAuthorizer creates a new Authorizer.
func NewAuthorizer(projectRepo repository.ProjectRepository) *Authorizer {
	return &Authorizer{projectRepo: projectRepo}
}

// RequireMember fails with ErrNotProjectMember unless the user has a
// membership in the project.
func (a *Authorizer) RequireMember(userID, projectID uint64) error {
	if _, err := a.projectRepo.FindMember(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotProjectMember
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	return nil
}

// RequireRole fetches the user's membership and fails with
// ErrNotProjectMember when absent, or ErrInsufficientRole when the held role
// does not reach required.
func (a *Authorizer) RequireRole(userID, projectID uint64, required models.ProjectRole) (*models.ProjectMember, error) {
	member, err := a.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotProjectMember
		}
		return nil, fmt.Errorf("failed to verify project membership: %w", err)
	}

	if !member.Role.AtLeast(required) {
		return nil, ErrInsufficientRole
	}

	return member, nil
}

// HasRole reports whether the user holds at least the required role. Missing
// membership counts as false; store failures surface as an error.
func (a *Authorizer) HasRole(userID, projectID uint64, required models.ProjectRole) (bool, error) {
	member, err := a.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to verify project membership: %w", err)
	}
	return member.Role.AtLeast(required), nil
}
