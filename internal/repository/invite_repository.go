package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/yukikurage/projecthub-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrInviteAlreadyAccepted is returned when accepting an invite whose
	// AcceptedAt is already set.
	ErrInviteAlreadyAccepted = errors.New("invite repository: invite already accepted")
	// ErrInviteExpired is returned when accepting an invite past its expiry.
	ErrInviteExpired = errors.New("invite repository: invite expired")
	// ErrDuplicatePendingInvite is returned when an unaccepted, unexpired
	// invite already exists for the same project and email.
	ErrDuplicatePendingInvite = errors.New("invite repository: duplicate pending invite")
)

// GormInviteRepository is a GORM implementation of InviteRepository
type GormInviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository creates a new InviteRepository
func NewInviteRepository(db *gorm.DB) InviteRepository {
	return &GormInviteRepository{db: db}
}

// CreatePending persists a new invite after verifying no other pending invite
// exists for the same project and email, compared case-insensitively. The
// check and the insert run in one transaction behind the project row lock, so
// two concurrent invites for the same email cannot both pass the check.
func (r *GormInviteRepository) CreatePending(invite *models.ProjectInvite, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockProject(tx, invite.ProjectID); err != nil {
			return err
		}

		var count int64
		err := tx.Model(&models.ProjectInvite{}).
			Where("project_id = ? AND LOWER(email) = ?", invite.ProjectID, strings.ToLower(invite.Email)).
			Where("accepted_at IS NULL AND expires_at > ?", now).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicatePendingInvite
		}

		return tx.Create(invite).Error
	})
}

// FindByToken finds an invite by its token
func (r *GormInviteRepository) FindByToken(token string) (*models.ProjectInvite, error) {
	var invite models.ProjectInvite
	if err := r.db.Where("token = ?", token).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// Accept marks the invite accepted and creates the membership when the user is
// not already a member. The whole sequence runs in one transaction with the
// invite row locked, so a concurrent second acceptance of the same token
// either sees AcceptedAt set or waits behind this one.
func (r *GormInviteRepository) Accept(token string, userID uint64, now time.Time) (*models.ProjectInvite, error) {
	var invite models.ProjectInvite

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Where("token = ?", token).First(&invite).Error; err != nil {
			return err
		}

		if invite.AcceptedAt != nil {
			return ErrInviteAlreadyAccepted
		}
		if invite.ExpiresAt.Before(now) {
			return ErrInviteExpired
		}

		var existing models.ProjectMember
		err := tx.Where("project_id = ? AND user_id = ?", invite.ProjectID, userID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			member := models.ProjectMember{
				ProjectID: invite.ProjectID,
				UserID:    userID,
				Role:      invite.Role,
				JoinedAt:  now,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		invite.AcceptedAt = &now
		return tx.Save(&invite).Error
	})
	if err != nil {
		return nil, err
	}

	return &invite, nil
}
