package model

import "strings"

// Status is the lifecycle state of a single ITR, derived from the raw
// "End Cert." cell.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusOngoing    Status = "ongoing"
	StatusCompleted  Status = "completed"
)

// Classify maps a raw End Cert. value to a Status.
//
// Blank means the ITR has not been started. "Y" means certified
// complete. "N" and any other non-blank value count as ongoing: the
// business rule is "open = anything not Y", so an unrecognized marker
// must never be reported as completed.
func Classify(raw string) Status {
	v := strings.TrimSpace(raw)
	switch {
	case v == "":
		return StatusNotStarted
	case strings.EqualFold(v, "Y"):
		return StatusCompleted
	default:
		return StatusOngoing
	}
}

// Open reports whether the status counts toward the open ITR total.
func (s Status) Open() bool {
	return s != StatusCompleted
}
