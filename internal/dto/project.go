package dto

import (
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
)

// ProjectWithRoleDTO represents a project with the requesting user's role
type ProjectWithRoleDTO struct {
	ProjectDTO
	Role models.ProjectRole `json:"role"`
}

// ProjectMemberDTO represents a member in a project
type ProjectMemberDTO struct {
	User     UserDTO            `json:"user"`
	Role     models.ProjectRole `json:"role"`
	JoinedAt time.Time          `json:"joined_at"`
}

// InviteDTO represents a project invite in API responses
type InviteDTO struct {
	ID         uint64             `json:"id"`
	ProjectID  uint64             `json:"project_id"`
	Email      string             `json:"email"`
	Token      string             `json:"token"`
	Role       models.ProjectRole `json:"role"`
	ExpiresAt  time.Time          `json:"expires_at"`
	AcceptedAt *time.Time         `json:"accepted_at"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ToProjectWithRoleDTO converts a membership to a project DTO carrying the role
func ToProjectWithRoleDTO(member models.ProjectMember) ProjectWithRoleDTO {
	return ProjectWithRoleDTO{
		ProjectDTO: ToProjectDTO(member.Project),
		Role:       member.Role,
	}
}

// ToProjectMemberDTO converts a member to DTO
func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	return ProjectMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToInviteDTO converts an invite to DTO
func ToInviteDTO(invite models.ProjectInvite) InviteDTO {
	return InviteDTO{
		ID:         invite.ID,
		ProjectID:  invite.ProjectID,
		Email:      invite.Email,
		Token:      invite.Token,
		Role:       invite.Role,
		ExpiresAt:  invite.ExpiresAt,
		AcceptedAt: invite.AcceptedAt,
		CreatedAt:  invite.CreatedAt,
	}
}
