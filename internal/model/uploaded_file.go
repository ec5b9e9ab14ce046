package model

import "time"

// UploadedFile records one distinct file content that has been imported.
type UploadedFile struct {
	UploadedAt       time.Time
	Filename         string
	Fingerprint      string
	ID               int64
	TransactionCount int
}

// ShortFingerprint returns the first eight characters of the fingerprint for display.
func (f *UploadedFile) ShortFingerprint() string {
	if len(f.Fingerprint) <= 8 {
		return f.Fingerprint
	}
	return f.Fingerprint[:8] + "..."
}
