package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"eventrsvp/internal/domain"
)

const defaultSize = 256

type generator struct {
	size  int
	level qrcode.RecoveryLevel
}

// NewGenerator returns a QRGenerator producing size x size PNGs with medium error
// correction. size <= 0 uses 256.
func NewGenerator(size int) domain.QRGenerator {
	if size <= 0 {
		size = defaultSize
	}
	return &generator{size: size, level: qrcode.Medium}
}

func (g *generator) Encode(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("encode qr: %w", domain.ErrInvalidInput)
	}
	png, err := qrcode.Encode(token, g.level, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

