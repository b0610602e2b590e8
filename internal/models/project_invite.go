package models

import "time"

type ProjectInvite struct {
	ID          uint64      `gorm:"primarykey" json:"id"`
	ProjectID   uint64      `gorm:"not null;index" json:"project_id"`
	Email       string      `gorm:"type:varchar(255);not null" json:"email"`
	Token       string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	Role        ProjectRole `gorm:"type:varchar(20);not null" json:"role"`
	InvitedByID uint64      `gorm:"not null" json:"invited_by_id"`
	ExpiresAt   time.Time   `json:"expires_at"`
	AcceptedAt  *time.Time  `json:"accepted_at"`
	CreatedAt   time.Time   `json:"created_at"`

	// Relations
	Project   Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	InvitedBy User    `gorm:"foreignKey:InvitedByID" json:"invited_by,omitempty"`
}

// Pending reports whether the invite can still be accepted at the given time.
func (i *ProjectInvite) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && i.ExpiresAt.After(now)
}
