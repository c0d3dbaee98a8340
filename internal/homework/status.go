package homework

import (
	"fmt"

	"github.com/eliseohh/reviewbot/internal/failure"
)

const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

var verdicts = map[string]string{
	StatusApproved:  "The work has been reviewed: the reviewer liked everything. Hooray!",
	StatusReviewing: "The work has been taken for review.",
	StatusRejected:  "The work has been reviewed: the reviewer has remarks.",
}

// Verdict returns the human-readable text for a known status.
func Verdict(status string) (string, bool) {
	v, ok := verdicts[status]
	return v, ok
}

// ParseStatus builds the notification text for a homework record.
func ParseStatus(hw Homework) (string, error) {
	const op = "parse status"

	if hw.Name == "" {
		return "", failure.New(failure.MissingKey, op, "key %q is missing from the homework record", "homework_name")
	}
	if hw.Status == "" {
		return "", failure.New(failure.UnknownStatus, op, "homework %q has no status", hw.Name)
	}
	verdict, ok := Verdict(hw.Status)
	if !ok {
		return "", failure.New(failure.UnknownStatus, op, "unknown homework status %q", hw.Status)
	}
	return fmt.Sprintf("Homework review status changed for %q. %s", hw.Name, verdict), nil
}
