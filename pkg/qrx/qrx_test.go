package qrx_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/aussiebroadwan/vcissuer/pkg/qrx"
	"github.com/stretchr/testify/require"
)

func TestPNGEncoder(t *testing.T) {
	enc := qrx.NewPNGEncoder(0)
	require.Equal(t, qrx.DefaultSize, enc.Size)

	data, err := enc.Encode("openid-credential-offer://?credential_offer=%7B%7D")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, qrx.DefaultSize, img.Bounds().Dx())
	require.Equal(t, qrx.DefaultSize, img.Bounds().Dy())
}

func TestPNGEncoderSmallSizeGrows(t *testing.T) {
	data, err := qrx.NewPNGEncoder(5).Encode(strings.Repeat("x", 200))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Greater(t, img.Bounds().Dx(), 5)
}

func TestPNGEncoderRejectsEmpty(t *testing.T) {
	_, err := qrx.NewPNGEncoder(100).Encode("")
	require.ErrorIs(t, err, qrx.ErrEmptyContent)
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	qrx.Terminal(&buf, "openid-credential-offer://?credential_offer=%7B%7D")
	require.NotZero(t, buf.Len())
}
