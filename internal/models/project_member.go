package models

import "time"

type ProjectRole string

const (
	RoleOwner  ProjectRole = "OWNER"
	RoleAdmin  ProjectRole = "ADMIN"
	RoleMember ProjectRole = "MEMBER"
	RoleViewer ProjectRole = "VIEWER"
)

// roleRanks orders roles by privilege; a lower rank means more privilege.
// The rank is explicit so reordering the constants can never change the
// comparison.
var roleRanks = map[ProjectRole]int{
	RoleOwner:  0,
	RoleAdmin:  1,
	RoleMember: 2,
	RoleViewer: 3,
}

// AtLeast reports whether r carries at least the privilege of required.
// Unknown roles rank below VIEWER.
func (r ProjectRole) AtLeast(required ProjectRole) bool {
	actualRank, ok := roleRanks[r]
	if !ok {
		return false
	}
	requiredRank, ok := roleRanks[required]
	if !ok {
		return false
	}
	return actualRank <= requiredRank
}

// Valid reports whether r is one of the defined roles.
func (r ProjectRole) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

type ProjectMember struct {
	ID        uint64      `gorm:"primarykey" json:"id"`
	ProjectID uint64      `gorm:"not null;uniqueIndex:uk_project_user" json:"project_id"`
	UserID    uint64      `gorm:"not null;uniqueIndex:uk_project_user" json:"user_id"`
	Role      ProjectRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time   `json:"joined_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
