package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// randomCode draws a 6-digit code uniformly from [100000, 999999].
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// randomMessageID builds an opaque delivery-tracking id for the SMS gateway:
// three lowercase letters followed by nine digits.
func randomMessageID() (string, error) {
	letters := make([]byte, 3)
	for i := range letters {
		n, err := rand.Int(rand.Reader, big.NewInt(26))
		if err != nil {
			return "", fmt.Errorf("generate message id: %w", err)
		}
		letters[i] = byte('a' + n.Int64())
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}
	return fmt.Sprintf("%s%09d", letters, n.Int64()), nil
}

// randomRefreshToken returns a 64-byte random value encoded as 128 hex chars.
func randomRefreshToken() (string, error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
