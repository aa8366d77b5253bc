package submission

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	ticketPath   = "/ticket"
	fallbackName = "attendee"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// NewRequestID returns "<unix ms in base 36>-<8 random hex digits>".
func NewRequestID(unixMilli int64) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(unixMilli, 36) + "-" + random[:8]
}

// TicketPath is where the browser goes after a successful submit.
func TicketPath(requestID string) string {
	return ticketPath + "?ts=" + requestID
}

// SanitizeName folds accents, turns whitespace runs into '-' and drops every
// character outside [A-Za-z0-9_-].
func SanitizeName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	s := whitespaceRun.ReplaceAllString(strings.TrimSpace(folded), "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		return fallbackName
	}
	return s
}

// PublicID is the image host identifier for a ticket.
func PublicID(fullName, requestID string) string {
	return fmt.Sprintf("%s_ticket_%s", SanitizeName(fullName), requestID)
}
