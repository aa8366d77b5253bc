package model

import "time"

// TicketState is the progress of a submission's capture and upload cycle.
type TicketState string

const (
	TicketPending   TicketState = "pending"
	TicketCapturing TicketState = "capturing"
	TicketUploading TicketState = "uploading"
	TicketNotifying TicketState = "notifying"
	TicketDone      TicketState = "done"
	TicketFailed    TicketState = "failed"
)

// Terminal reports whether no further transition will happen.
func (s TicketState) Terminal() bool {
	return s == TicketDone || s == TicketFailed
}

// TicketOutcome is what the ticket screen polls for one request id.
type TicketOutcome struct {
	RequestID string      `json:"requestId"`
	State     TicketState `json:"state"`
	TicketURL string      `json:"ticketUrl,omitempty"`
	PublicID  string      `json:"publicId,omitempty"`
	Error     string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
