package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"time"
)

const avatarField = "avatarImage"

// ticketStatus mirrors GET /api/tickets/{requestId}.
type ticketStatus struct {
	RequestID string `json:"requestId"`
	State     string `json:"state"`
	TicketURL string `json:"ticketUrl"`
	Error     string `json:"error"`
}

func (t ticketStatus) terminal() bool {
	return t.State == "done" || t.State == "failed"
}

// browser is one visitor: its own cookie jar, so its own session.
type browser struct {
	base   string
	client *http.Client
}

func newBrowser(base string, timeout time.Duration) (*browser, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &browser{base: base, client: &http.Client{Jar: jar, Timeout: timeout}}, nil
}

func (b *browser) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return b.client.Do(req)
}

// register loads the form, then submits reg. The redirect to the ticket
// screen is followed, so a successful response carries the request id in its
// final URL.
func (b *browser) register(ctx context.Context, reg Registration) (status int, requestID string, err error) {
	form, err := b.get(ctx, "/")
	if err != nil {
		return 0, "", fmt.Errorf("load form: %w", err)
	}
	_, _ = io.Copy(io.Discard, form.Body)
	_ = form.Body.Close()

	body, contentType, err := encodeRegistration(reg)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.base+"/", body)
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("submit: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK && resp.Request.URL.Path == "/ticket" {
		return resp.StatusCode, resp.Request.URL.Query().Get("ts"), nil
	}
	return resp.StatusCode, "", nil
}

func (b *browser) ticket(ctx context.Context, requestID string) (ticketStatus, error) {
	var st ticketStatus
	resp, err := b.get(ctx, "/api/tickets/"+requestID)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("ticket status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode ticket status: %w", err)
	}
	return st, nil
}

// waitTicket polls until the ticket is done or failed, or until wait passes.
func (b *browser) waitTicket(ctx context.Context, requestID string, wait, every time.Duration) (ticketStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var last ticketStatus
	for {
		st, err := b.ticket(ctx, requestID)
		if err == nil {
			last = st
			if st.terminal() {
				return st, nil
			}
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func encodeRegistration(reg Registration) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range map[string]string{
		"fullName":     reg.FullName,
		"email":        reg.Email,
		"githubHandle": reg.GitHub,
	} {
		if err := mw.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="avatar.jpg"`, avatarField))
	h.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(reg.Avatar); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
