// Package model contains domain models passed between layers.
package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Avatar is an uploaded or compressed raster image.
type Avatar struct {
	Name        string
	ContentType string
	Data        []byte
	Width       int
	Height      int
}

// Empty reports whether the avatar carries no image data.
func (a *Avatar) Empty() bool {
	return a == nil || len(a.Data) == 0
}

// RegistrationDraft is what the form screen collects before submit.
type RegistrationDraft struct {
	FullName string
	Email    string
	GitHub   string // handle including the leading '@'
	Avatar   *Avatar
}

// Field names used for per-field validation messages.
const (
	FieldFullName = "fullName"
	FieldEmail    = "email"
	FieldGitHub   = "githubHandle"
	FieldAvatar   = "avatarImage"
)

// ValidationResult holds one message per field; empty means valid.
type ValidationResult struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	GitHub   string `json:"githubHandle"`
	Avatar   string `json:"avatarImage"`
}

// Valid reports whether every field message is empty.
func (v ValidationResult) Valid() bool {
	return v.FullName == "" && v.Email == "" && v.GitHub == "" && v.Avatar == ""
}

// Fields returns the messages keyed by field name.
func (v ValidationResult) Fields() map[string]string {
	return map[string]string{
		FieldFullName: v.FullName,
		FieldEmail:    v.Email,
		FieldGitHub:   v.GitHub,
		FieldAvatar:   v.Avatar,
	}
}

// HandleStatus is the outcome of the live handle existence check.
type HandleStatus int

const (
	HandleUnset HandleStatus = iota
	HandleChecking
	HandleExists
	HandleMissing
)

var handleStatusNames = [...]string{"unset", "checking", "confirmed-exists", "confirmed-missing"}

func (s HandleStatus) String() string {
	if s < 0 || int(s) >= len(handleStatusNames) {
		return fmt.Sprintf("HandleStatus(%d)", int(s))
	}
	return handleStatusNames[s]
}

// MarshalJSON encodes the status by name.
func (s HandleStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// SuggestionEntry is one candidate handle shown under the handle field.
type SuggestionEntry struct {
	Handle             string `json:"handle"`
	AvatarThumbnailURL string `json:"avatarUrl"`
	DisplayName        string `json:"displayName,omitempty"`
}

// SubmissionRecord is the accepted registration shared with the ticket screen.
type SubmissionRecord struct {
	RequestID string
	FullName  string
	Email     string
	GitHub    string
	Avatar    *Avatar
	AvatarURL string // hosted avatar, used when no local blob is present
	CreatedAt time.Time
}

// CapturedTicketImage is a rasterised ticket encoded as a data URL.
type CapturedTicketImage struct {
	DataURL string
	Width   int
	Height  int
}

// ErrNotPNGDataURL is returned by PNG for anything but a base64 PNG data URL.
var ErrNotPNGDataURL = errors.New("not a png data url")

const pngDataURLPrefix = "data:image/png;base64,"

// PNG decodes the image bytes carried by the data URL.
func (c CapturedTicketImage) PNG() ([]byte, error) {
	payload, ok := strings.CutPrefix(c.DataURL, pngDataURLPrefix)
	if !ok {
		return nil, ErrNotPNGDataURL
	}
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotPNGDataURL, err)
	}
	return b, nil
}
