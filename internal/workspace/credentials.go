package workspace

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// Credentials are the generated secrets for a project. They are stored
// separately from the project descriptor and excluded from any default
// display.
type Credentials struct {
	AppKey         string    `json:"app_key,omitempty"`
	JWTSecret      string    `json:"jwt_secret"`
	DBRootPassword string    `json:"db_root_password"`
	DBPassword     string    `json:"db_password"`
	EncryptionKey  string    `json:"encryption_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GenerateCredentials creates a fresh credentials document for a stack.
// Laravel gets an APP_KEY; SpringBoot gets a JWT encryption key.
func GenerateCredentials(stack Stack) (*Credentials, error) {
	jwtSecret, err := randomSecret(32)
	if err != nil {
		return nil, err
	}
	rootPass, err := randomSecret(24)
	if err != nil {
		return nil, err
	}
	dbPass, err := randomSecret(24)
	if err != nil {
		return nil, err
	}

	c := &Credentials{
		JWTSecret:      jwtSecret,
		DBRootPassword: rootPass,
		DBPassword:     dbPass,
		CreatedAt:      time.Now(),
	}

	switch stack {
	case StackLaravelVue:
		appKey, err := randomSecret(32)
		if err != nil {
			return nil, err
		}
		c.AppKey = "base64:" + appKey
	case StackSpringBootVue:
		encKey, err := randomSecret(32)
		if err != nil {
			return nil, err
		}
		c.EncryptionKey = encKey
	}

	return c, nil
}

// randomSecret returns n bytes of cryptographic randomness, base64 encoded.
func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
