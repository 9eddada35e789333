package model

import "time"

// User represents a registered account.
//
// Accounts come from two identity sources: GitHub OAuth and email/password.
// GitHubID is nil for email accounts and PasswordHash is empty for GitHub
// accounts. We still generate our own internal string ID (xid) so neither
// provider's numbering leaks into our primary keys.
type User struct {
	ID           string    `json:"id"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatarUrl"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
