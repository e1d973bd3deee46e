package qrcode

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeURL(t *testing.T) {
	encoder := NewPNGEncoder(256)

	t.Run("Success", func(t *testing.T) {
		dataURI, err := encoder.EncodeURL("https://safework.example.com/qr-register/abc123")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(dataURI, "data:image/png;base64,"))

		payload := strings.TrimPrefix(dataURI, "data:image/png;base64,")
		png, err := base64.StdEncoding.DecodeString(payload)
		require.NoError(t, err)

		// PNG magic bytes
		require.GreaterOrEqual(t, len(png), 8)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, png[:8])
	})

	t.Run("Empty URL", func(t *testing.T) {
		dataURI, err := encoder.EncodeURL("")
		assert.ErrorIs(t, err, ErrEmptyURL)
		assert.Empty(t, dataURI)
	})
}

func TestNewPNGEncoderDefaultsSize(t *testing.T) {
	assert.Equal(t, 256, NewPNGEncoder(0).size)
	assert.Equal(t, 256, NewPNGEncoder(-10).size)
	assert.Equal(t, 512, NewPNGEncoder(512).size)
}
