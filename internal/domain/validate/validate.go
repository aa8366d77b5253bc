// Package validate checks registration drafts field by field.
package validate

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/okian/conftix/internal/domain/model"
)

// Field messages shown next to the form inputs.
const (
	MsgFullNameEmpty   = "Please enter a valid full name."
	MsgFullNameDigits  = "Full name must not contain numbers."
	MsgEmailEmpty      = "Please enter a valid email address."
	MsgEmailFormat     = "Invalid email format."
	MsgHandleEmpty     = "Please enter a valid GitHub handle."
	MsgHandleFormat    = "GitHub handle must start with '@' and contain no spaces."
	MsgHandleNotFound  = "This GitHub account doesn't exist."
	MsgAvatarMissing   = "Please upload an avatar."
	MsgAvatarType      = "Invalid file type. Please upload a JPG or PNG file."
	MsgAvatarTooLarge  = "File size is too large after compression."
	handleSigil        = "@"
	handleLoginPattern = `[a-zA-Z0-9_-]+`
)

var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	handleRe = regexp.MustCompile(`^@` + handleLoginPattern + `$`)
)

// Validate recomputes every field message for d. status is the live handle
// check result for d.GitHub; HandleUnset when no checker is wired.
func Validate(d model.RegistrationDraft, status model.HandleStatus) model.ValidationResult {
	return model.ValidationResult{
		FullName: FullName(d.FullName),
		Email:    Email(d.Email),
		GitHub:   Handle(d.GitHub, status),
		Avatar:   Avatar(d.Avatar),
	}
}

// FullName returns the full name message.
func FullName(name string) string {
	if strings.TrimSpace(name) == "" {
		return MsgFullNameEmpty
	}
	if strings.IndexFunc(name, unicode.IsDigit) >= 0 {
		return MsgFullNameDigits
	}
	return ""
}

// Email returns the email message.
func Email(email string) string {
	if strings.TrimSpace(email) == "" {
		return MsgEmailEmpty
	}
	if !emailRe.MatchString(email) {
		return MsgEmailFormat
	}
	return ""
}

// Handle returns the GitHub handle message. Syntax is checked before the
// existence status so a malformed handle never reports "doesn't exist".
func Handle(handle string, status model.HandleStatus) string {
	if strings.TrimSpace(handle) == "" {
		return MsgHandleEmpty
	}
	if !handleRe.MatchString(handle) {
		return MsgHandleFormat
	}
	if status == model.HandleMissing {
		return MsgHandleNotFound
	}
	return ""
}

// Avatar returns the avatar message.
func Avatar(a *model.Avatar) string {
	if a.Empty() {
		return MsgAvatarMissing
	}
	return ""
}

// ValidHandle reports whether handle is '@' followed by a GitHub login.
func ValidHandle(handle string) bool {
	return handleRe.MatchString(handle)
}

// HandleLogin strips the leading '@'.
func HandleLogin(handle string) string {
	return strings.TrimPrefix(strings.TrimSpace(handle), handleSigil)
}

// HandleFromLogin prefixes login with '@'.
func HandleFromLogin(login string) string {
	return handleSigil + HandleLogin(login)
}
