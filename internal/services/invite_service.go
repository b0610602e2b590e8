package services

import (
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"github.com/yukikurage/projecthub-api/internal/constants"
	"github.com/yukikurage/projecthub-api/internal/models"
	"github.com/yukikurage/projecthub-api/internal/repository"
	"github.com/yukikurage/projecthub-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidInviteEmail     = errors.New("invite email cannot be empty")
	ErrInvalidInviteRole      = errors.New("invalid invite role")
	ErrDuplicatePendingInvite = errors.New("a pending invite already exists for this email")
	ErrInviteNotFound         = errors.New("invite not found")
	ErrInviteAlreadyAccepted  = errors.New("invite already accepted")
	ErrInviteExpired          = errors.New("invite expired")
	ErrTokenGenerationFailed  = errors.New("failed to generate invite token")
)

// InviteService manages the project invite lifecycle.
type InviteService struct {
	inviteRepo  repository.InviteRepository
	projectRepo repository.ProjectRepository
	authorizer  *Authorizer
	mailer      Mailer
}

// NewInviteService creates a new InviteService.
func NewInviteService(inviteRepo repository.InviteRepository, projectRepo repository.ProjectRepository, authorizer *Authorizer, mailer Mailer) *InviteService {
	return &InviteService{
		inviteRepo:  inviteRepo,
		projectRepo: projectRepo,
		authorizer:  authorizer,
		mailer:      mailer,
	}
}

// InviteInput represents parameters to invite a collaborator by email.
type InviteInput struct {
	Email string
	Role  models.ProjectRole
}

// Invite issues an invite token for the email and notifies the invitee.
// Requires the ADMIN role. The notification is best-effort: a send failure is
// logged and the invite still succeeds.
func (s *InviteService) Invite(actorID, projectID uint64, input InviteInput) (*models.ProjectInvite, error) {
	if _, err := s.authorizer.RequireRole(actorID, projectID, models.RoleAdmin); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, ErrInvalidInviteEmail
	}

	role := input.Role
	if role == "" {
		role = models.RoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidInviteRole
	}

	now := time.Now()

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	token, err := utils.GenerateInviteToken()
	if err != nil {
		return nil, ErrTokenGenerationFailed
	}

	invite := &models.ProjectInvite{
		ProjectID:   projectID,
		Email:       email,
		Token:       token,
		Role:        role,
		InvitedByID: actorID,
		ExpiresAt:   now.Add(constants.InviteTTL),
	}

	if err := s.inviteRepo.CreatePending(invite, now); err != nil {
		if errors.Is(err, repository.ErrDuplicatePendingInvite) {
			return nil, ErrDuplicatePendingInvite
		}
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	s.sendInviteEmail(invite, project)

	return invite, nil
}

// AcceptInvite redeems an invite token for the accepting user. Accepting from
// an already-member state is idempotent on membership: the invite is marked
// accepted without creating a second membership row.
func (s *InviteService) AcceptInvite(userID uint64, token string) (*models.ProjectInvite, error) {
	invite, err := s.inviteRepo.Accept(token, userID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrInviteNotFound
		case errors.Is(err, repository.ErrInviteAlreadyAccepted):
			return nil, ErrInviteAlreadyAccepted
		case errors.Is(err, repository.ErrInviteExpired):
			return nil, ErrInviteExpired
		}
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}

	return invite, nil
}

// sendInviteEmail notifies the invitee. Failures are swallowed on purpose.
func (s *InviteService) sendInviteEmail(invite *models.ProjectInvite, project *models.Project) {
	subject := "You're invited to a project"
	body := fmt.Sprintf(
		"<p>You have been invited to join project <b>%s</b> as <b>%s</b>.</p>"+
			"<p>Use this token to accept: <b>%s</b></p>"+
			"<p>Or call POST /api/invites/%s/accept from the app.</p>",
		html.EscapeString(project.Name),
		invite.Role,
		invite.Token,
		invite.Token,
	)

	if err := s.mailer.Send(invite.Email, subject, body); err != nil {
		log.Printf("invite email to %s failed: %v", invite.Email, err)
	}
}
