package models

import (
	"fmt"
	"time"
)

// Credential is a stored OAuth token for a provider.
type Credential struct {
	record
	Provider     string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	Expiry       time.Time
}

// NewCredential creates a [Credential] for provider with fresh timestamps.
func NewCredential(provider, accessToken, refreshToken, tokenType string, expiry time.Time) *Credential {
	return &Credential{
		record:       newRecord(),
		Provider:     provider,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		Expiry:       expiry,
	}
}

func (c *Credential) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	return nil
}
