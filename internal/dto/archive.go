package dto

import "time"

// ArchiveRequest triggers an archival sweep for events older than the cutoff.
// When Before is nil the configured operational retention applies.
type ArchiveRequest struct {
	Before *time.Time `json:"before"`
}

// ArchiveResponse reports how many events were moved.
type ArchiveResponse struct {
	Archived int       `json:"archived"`
	Cutoff   time.Time `json:"cutoff"`
}
