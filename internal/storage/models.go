package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Profile is the persisted state of one user's generated profile page.
// ProfileJSON holds the structured sections document and ProfileHTML the last
// rendered markup; either may be empty while the pipeline is mid-flight.
type Profile struct {
	ID          string
	AuthUserID  string
	Slug        string
	DisplayName string
	Username    string
	Email       string
	PDFText     string
	ProfileJSON string
	ProfileHTML string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
