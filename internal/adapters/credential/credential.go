// Package credential mints pass tokens and renders them as QR code images.
package credential

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/skip2/go-qrcode"

	"visitorpass/internal/domain"
)

const (
	tokenBytes = 32
	qrSize     = 256
)

type generator struct {
	level qrcode.RecoveryLevel
	size  int
}

// NewGenerator returns a CredentialGenerator producing 64-char hex tokens and 256px PNG QR codes.
func NewGenerator() domain.CredentialGenerator {
	return &generator{level: qrcode.Medium, size: qrSize}
}

func (g *generator) GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (g *generator) Encode(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("encode qr: empty content")
	}
	png, err := qrcode.Encode(url, g.level, g.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
