package rbac

import (
	"errors"
	"time"
)

// Role groups permissions under a name such as warehouse or purchasing.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission is an atomic capability like receiving.edit.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")
