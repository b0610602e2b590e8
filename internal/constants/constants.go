package constants

import "time"

// ContextKeyUserID is the key under which the authenticated user ID is stored
// in both the session and the gin context.
const ContextKeyUserID = "user_id"

// MinPasswordLength is the minimum accepted password length on signup.
const MinPasswordLength = 8

// InviteTTL is how long a project invite stays acceptable after creation.
const InviteTTL = 7 * 24 * time.Hour

const (
	// ProjectKeyBaseLength caps a key derived from the project name before
	// dedup suffixing.
	ProjectKeyBaseLength = 6
	// ProjectKeyMaxLength caps the total key length including a dedup suffix.
	ProjectKeyMaxLength = 10
	// DefaultProjectKey is used when sanitizing the name leaves nothing.
	DefaultProjectKey = "PRJ"
)
