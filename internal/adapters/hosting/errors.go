package hosting

import "errors"

// ErrUpload is returned for every failed upload, including host rejections.
var ErrUpload = errors.New("image upload failed")
