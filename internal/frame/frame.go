// Package frame converts between gocv images and the JPEG and base64
// payloads exchanged with clients.
package frame

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is the quality used by EncodeJPEG.
const DefaultJPEGQuality = 80

const dataURLPrefix = "data:image/jpeg;base64,"

var (
	// ErrEmptyFrame is returned for an empty payload.
	ErrEmptyFrame = errors.New("no frame provided")
	// ErrInvalidFrame is returned when a payload is not a decodable image.
	ErrInvalidFrame = errors.New("invalid frame data")
)

// DecodeDataURL decodes raw base64 or a data URL such as
// "data:image/png;base64,..." into a BGR Mat owned by the caller.
func DecodeDataURL(s string) (gocv.Mat, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return gocv.Mat{}, ErrEmptyFrame
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Browsers sometimes strip the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
		}
	}
	return DecodeJPEG(data)
}

// DecodeJPEG decodes encoded image bytes (JPEG, PNG, ...) into a BGR Mat.
func DecodeJPEG(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, ErrEmptyFrame
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, ErrInvalidFrame
	}
	return mat, nil
}

// EncodeJPEG encodes mat at DefaultJPEGQuality.
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	return EncodeJPEGQuality(mat, DefaultJPEGQuality)
}

// EncodeJPEGQuality encodes mat as JPEG at the given quality (1-100).
func EncodeJPEGQuality(mat gocv.Mat, quality int) ([]byte, error) {
	if mat.Empty() {
		return nil, ErrEmptyFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory that Close frees.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// EncodeDataURL encodes mat as "data:image/jpeg;base64,...".
func EncodeDataURL(mat gocv.Mat) (string, error) {
	data, err := EncodeJPEG(mat)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}
