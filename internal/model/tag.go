package model

import "time"

// Tag is a user-defined label that transactions reference by ID.
type Tag struct {
	CreatedAt   time.Time
	Name        string
	Description string
	Color       string
	ID          int64
}
