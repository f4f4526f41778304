// Package models defines the records shared between the storage client and
// the application state.
package models

import "time"

// Status is the lifecycle state of a RemoteFile. The zero value is
// StatusUnknown: a record counts as stored only once something set it.
type Status int

const (
	StatusUnknown Status = iota
	StatusSuccess
	StatusInProgress
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInProgress:
		return "in_progress"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// ErrorCode classifies why a file operation failed.
type ErrorCode string

const (
	ErrorNone         ErrorCode = ""
	ErrorNetwork      ErrorCode = "network"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorTokenExpired ErrorCode = "token_expired"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorUnknown      ErrorCode = "unknown"
)

// RemoteFile is a file in the caller's scope. RemotePath is relative to
// that scope and never contains site or user prefixes.
type RemoteFile struct {
	Name         string    `json:"name"`
	Type         string    `json:"type,omitempty"`
	Size         int64     `json:"size"`
	CreationDate time.Time `json:"creationDate"`
	RemotePath   string    `json:"remotePath"`

	// Loaded is the number of bytes transferred while uploading.
	Loaded int64     `json:"-"`
	Status Status    `json:"-"`
	Error  ErrorCode `json:"-"`
}

// Uploaded reports whether the file is fully stored.
func (f RemoteFile) Uploaded() bool { return f.Status == StatusSuccess }
