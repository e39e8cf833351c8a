// Package filex holds file helpers shared by the HTTP layer and services:
// image sniffing and turning an uploaded file into a data URL string.
package filex

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/artfeed/internal/common"
	"github.com/gabriel-vasile/mimetype"
)

// MaxImageBytes bounds a single uploaded image.
const MaxImageBytes = 8 << 20

// DetectImage returns the MIME type of data, or common.ErrNotAnImageFile
// when the content is not an image.
func DetectImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", common.ErrInvalidFileData
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", common.ErrNotAnImageFile
	}
	return mt.String(), nil
}

// ReadImage reads at most limit bytes from r and checks that they are an
// image. Files larger than limit are rejected rather than truncated.
func ReadImage(r io.Reader, limit int64) ([]byte, string, error) {
	if r == nil {
		return nil, "", common.ErrInvalidFileData
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if n > limit {
		return nil, "", fmt.Errorf("%w: exceeds %d bytes", common.ErrFileTooLarge, limit)
	}
	mime, err := DetectImage(buf.Bytes())
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mime, nil
}

// ToDataURL reads an image from r and encodes it as
// "data:<mime>;base64,<payload>".
func ToDataURL(r io.Reader, limit int64) (string, error) {
	data, mime, err := ReadImage(r, limit)
	if err != nil {
		return "", err
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
