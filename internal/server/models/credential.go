package models

import "time"

// CredentialPointer records where a user's provider secret lives in the vault.
// It never holds the secret itself.
type CredentialPointer struct {
	UserID        string
	Provider      string
	SecretAddress string
	UpdatedAt     time.Time
}
