package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/conftix/internal/domain/imaging"
	"github.com/okian/conftix/internal/domain/model"
)

// AvatarField is the multipart field carrying the avatar file.
const AvatarField = model.FieldAvatar

type avatarResponse struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Bytes       int    `json:"bytes"`
	DataURL     string `json:"dataUrl"`
}

// AvatarHandler compresses avatar uploads and keeps them on the session.
type AvatarHandler struct {
	sessions   Sessions
	compressor Compressor
}

// NewAvatarHandler creates a new avatar handler.
func NewAvatarHandler(sessions Sessions, compressor Compressor) *AvatarHandler {
	return &AvatarHandler{sessions: sessions, compressor: compressor}
}

// HandleUpload handles POST /api/avatar. A rejected file also drops any
// previously kept avatar and answers 422 with the field message.
func (h *AvatarHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	in, err := ReadAvatar(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	s := h.sessions.FromRequest(w, r)
	out, err := h.compressor.Compress(r.Context(), in)
	if err != nil {
		s.SetAvatar(nil)
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "invalid_avatar",
			Message: imaging.FieldMessage(err),
		})
		return
	}

	s.SetAvatar(&out)
	writeJSON(w, http.StatusOK, avatarResponse{
		Name:        out.Name,
		ContentType: out.ContentType,
		Width:       out.Width,
		Height:      out.Height,
		Bytes:       len(out.Data),
		DataURL:     AvatarDataURL(&out),
	})
}

// HandleRemove handles DELETE /api/avatar.
func (h *AvatarHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.sessions.FromRequest(w, r).SetAvatar(nil)
	w.WriteHeader(http.StatusNoContent)
}

// ReadAvatar reads the avatar file from a multipart request.
func ReadAvatar(w http.ResponseWriter, r *http.Request) (model.Avatar, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBody)
	f, hdr, err := r.FormFile(AvatarField)
	if err != nil {
		return model.Avatar{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return model.Avatar{}, err
	}
	if len(data) == 0 {
		return model.Avatar{}, errors.New("empty file")
	}
	return model.Avatar{
		Name:        hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// AvatarDataURL encodes a for inline display.
func AvatarDataURL(a *model.Avatar) string {
	if a.Empty() {
		return ""
	}
	return "data:" + a.ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}
