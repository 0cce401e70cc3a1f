// Package enquiry keeps the durable log of listing selections that feeds
// the owners' digest.
package enquiry

import (
	"context"
	"time"
)

// Record is one listing selection. It is handed to a Recorder by value and
// never changed afterwards.
type Record struct {
	TimestampUTC       time.Time `json:"timestamp_utc"`
	SubjectID          string    `json:"subject_id"`
	SubjectName        string    `json:"subject_name"`
	Category           string    `json:"category"`
	ListingID          string    `json:"listing_id"`
	ListingTitle       string    `json:"listing_title"`
	ListingDescription string    `json:"listing_description"`
}

// Entry is a stored Record.
type Entry struct {
	Record
	ID             string `json:"id"`
	TimestampLocal string `json:"timestamp_local"`
	Reviewed       bool   `json:"reviewed"`
}

type Recorder interface {
	Record(ctx context.Context, r Record) error
}

type Reader interface {
	Since(ctx context.Context, since time.Time) ([]Entry, error)
}
