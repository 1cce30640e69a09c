// Package models holds the persisted row shapes. Only row ids live
// here; opaque external identifiers are produced at the service
// boundary and never stored.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is stored per user row and is immutable after creation except by
// direct administrative data change; no API mutates it.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleClient        Role = "client"
)

// PasswordHash is the PHC-encoded argon2id hash. The Stringer keeps it
// out of logs and debug output.
type PasswordHash string

func (PasswordHash) String() string { return "PasswordHash(...)" }

type User struct {
	ID            int64
	Name          string
	Email         string
	PasswordHash  PasswordHash
	RefreshSecret uuid.UUID
	Role          Role
	CreatedAt     time.Time
}
