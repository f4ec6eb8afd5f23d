package placement

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBackgroundLimit caps uploaded background images.
const DefaultBackgroundLimit = 5 << 20

var (
	ErrNotImage    = errors.New("file is not an image")
	ErrTooLarge    = errors.New("image is too large")
	ErrEmptyUpload = errors.New("empty upload")
)

// EncodeBackground reads an uploaded image and returns it as a data URL
// that can be stored as a room background.
func EncodeBackground(r io.Reader, limit int64) (string, error) {
	if limit <= 0 {
		limit = DefaultBackgroundLimit
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, limit)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, contentType)
	}

	var buf bytes.Buffer
	buf.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(data)))
	buf.WriteString("data:")
	buf.WriteString(contentType)
	buf.WriteString(";base64,")
	buf.WriteString(base64.StdEncoding.EncodeToString(data))

	return buf.String(), nil
}

// IsDataURL reports whether s looks like an embeddable image data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,")
}
