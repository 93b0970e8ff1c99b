// Package avatars turns uploaded pictures into square JPEG avatars and keeps
// them in S3-compatible object storage.
package avatars

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

const (
	Size        = 250
	jpegQuality = 85
	// uploads above this are rejected before decoding
	MaxUploadBytes = 10 << 20
)

var ErrInvalidImage = errors.New("invalid image")

// Normalize decodes any supported image format, crops it to a centered
// Size x Size square and re-encodes it as JPEG.
func Normalize(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(io.LimitReader(r, MaxUploadBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	square := imaging.Fill(img, Size, Size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, square, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
