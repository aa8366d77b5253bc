package imaging

import (
	"errors"

	"github.com/okian/conftix/internal/domain/validate"
)

var (
	// ErrUnsupportedImageType is returned for anything that is not a decodable JPEG or PNG.
	ErrUnsupportedImageType = errors.New("unsupported image type")
	// ErrImageTooLarge is returned when the re-encoded avatar is above the size ceiling.
	ErrImageTooLarge = errors.New("image too large after compression")
)

// MsgAvatarFailed is shown when compression fails for any other reason.
const MsgAvatarFailed = "Could not process this image. Please try another file."

// FieldMessage maps a Compress error to the avatar field message.
func FieldMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedImageType):
		return validate.MsgAvatarType
	case errors.Is(err, ErrImageTooLarge):
		return validate.MsgAvatarTooLarge
	default:
		return MsgAvatarFailed
	}
}
