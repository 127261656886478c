// Package qrx renders offer URIs as QR codes, either as PNG images for the
// HTTP API or as block characters for a terminal.
package qrx

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/mdp/qrterminal/v3"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 320

var ErrEmptyContent = errors.New("qrx: empty content")

// PNGEncoder renders square PNG QR codes with medium error correction.
type PNGEncoder struct {
	Size int
}

// NewPNGEncoder returns an encoder for size x size images. Non-positive
// sizes fall back to DefaultSize.
func NewPNGEncoder(size int) *PNGEncoder {
	if size <= 0 {
		size = DefaultSize
	}
	return &PNGEncoder{Size: size}
}

// Encode returns content as a PNG QR code.
func (e *PNGEncoder) Encode(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qrx: encode: %w", err)
	}

	// Scale refuses sizes smaller than the symbol itself.
	size := max(e.Size, code.Bounds().Dx())
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("qrx: scale: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("qrx: png: %w", err)
	}
	return buf.Bytes(), nil
}

// Terminal writes content to w as a QR code made of block characters.
func Terminal(w io.Writer, content string) {
	qrterminal.GenerateWithConfig(content, qrterminal.Config{
		HalfBlocks:     true,
		Level:          qrterminal.M,
		Writer:         w,
		QuietZone:      1,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
}
