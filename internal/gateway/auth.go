package gateway

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// sessionToken signs a short-lived HS256 token proving the client holds the
// shared secret. The backend verifies it on the hello command and rejects
// the connection otherwise.
func sessionToken(secret []byte) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "opsdeck",
		Subject:   "dashboard",
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)), // clock skew buffer
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// LoadSecret reads the shared secret file. A missing file is not an error:
// it means the backend runs without the handshake.
func LoadSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return nil, nil
	}
	return []byte(secret), nil
}
