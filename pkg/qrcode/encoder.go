package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

// ErrEmptyURL indicates an empty string was passed for encoding
var ErrEmptyURL = errors.New("url to encode cannot be empty")

// Encoder renders a URL as a QR image suitable for embedding in a response
// or printing on a registration sheet
type Encoder interface {
	EncodeURL(url string) (string, error)
}

// PNGEncoder renders QR symbols as base64 PNG data URIs
type PNGEncoder struct {
	size int
}

// NewPNGEncoder creates an encoder producing size x size pixel images
func NewPNGEncoder(size int) *PNGEncoder {
	if size <= 0 {
		size = 256
	}
	return &PNGEncoder{size: size}
}

// EncodeURL encodes a URL into a QR symbol with medium error correction and
// returns it as a data URI (data:image/png;base64,...)
func (e *PNGEncoder) EncodeURL(url string) (string, error) {
	if url == "" {
		return "", ErrEmptyURL
	}

	png, err := qr.Encode(url, qr.Medium, e.size)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR image: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
