package smoke

import (
	"errors"
	"time"
)

// ErrSmokeFailed is returned by Run when any registration did not end with
// a stored ticket.
var ErrSmokeFailed = errors.New("smoke run failed")

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL       string        // Base URL of the service
	Registrations int           // Number of registrations to submit
	Workers       int           // Number of concurrent browsers
	Timeout       time.Duration // HTTP request timeout
	TicketWait    time.Duration // How long to wait for each ticket to finish
	PollInterval  time.Duration // Ticket status poll interval
	Handles       []string      // GitHub handles to register with, cycled
	OutputFile    string        // Optional JSON results file
	Verbose       bool
}

// Registration is one generated form submission.
type Registration struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	GitHub   string `json:"githubHandle"`
	Avatar   []byte `json:"-"`
}

// Result is what happened to one registration.
type Result struct {
	Registration
	Status    int    `json:"status"`
	RequestID string `json:"requestId,omitempty"`
	State     string `json:"state,omitempty"`
	TicketURL string `json:"ticketUrl,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Stats holds run statistics.
type Stats struct {
	Generated     int
	Accepted      int
	Rejected      int
	Failed        int
	TicketsDone   int
	TicketsFailed int
	TicketsStuck  int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
