// Package models defines data structures and domain types.
package models

import "time"

// Account is one credential identity for the target app.
type Account struct {
	AddedAt   time.Time `json:"addedAt"`
	LastUsed  time.Time `json:"lastUsed,omitempty"`
	Quota     *Quota    `json:"quota,omitempty"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	ProjectID string    `json:"projectId,omitempty"`
	Token     TokenData `json:"token"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() Account {
	clone := *a
	if a.Quota != nil {
		q := a.Quota.Clone()
		clone.Quota = &q
	}
	return clone
}

// DisplayName returns the name if set, otherwise the email.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

// AccountWithQuota combines account information with its active flag.
type AccountWithQuota struct {
	Account
	IsActive bool `json:"isActive"`
}
