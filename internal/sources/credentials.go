// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package sources

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/sellerpulse/sellerpulse/internal/config"
	"github.com/sellerpulse/sellerpulse/internal/models"
)

// Credentials is the decrypted per-(org, source) credential payload.
type Credentials struct {
	APIKey    string `json:"api_key"`
	AccountID string `json:"account_id"`
	Region    string `json:"region,omitempty"`
}

// credentialStore is the slice of the database the provider needs.
type credentialStore interface {
	GetCredentials(ctx context.Context, orgID int64, source models.Source) (string, bool, error)
}

// CredentialsProvider loads and decrypts source credentials from the store.
type CredentialsProvider struct {
	store     credentialStore
	encryptor *config.CredentialEncryptor
}

// NewCredentialsProvider creates a provider over the given store and encryptor.
func NewCredentialsProvider(store credentialStore, encryptor *config.CredentialEncryptor) *CredentialsProvider {
	return &CredentialsProvider{store: store, encryptor: encryptor}
}

// Get returns the decrypted credentials for (org, source). A missing row is
// reported as ErrNoCredentials so callers can branch with errors.Is; a
// failing store query or undecryptable payload is a real error.
func (p *CredentialsProvider) Get(ctx context.Context, orgID int64, source models.Source) (*Credentials, error) {
	payload, ok, err := p.store.GetCredentials(ctx, orgID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials for %s: %w", source, err)
	}
	if !ok {
		return nil, ErrNoCredentials
	}

	plaintext, err := p.encryptor.Decrypt(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials for %s: %w", source, err)
	}

	creds := &Credentials{}
	if err := json.Unmarshal([]byte(plaintext), creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials for %s: %w", source, err)
	}
	if creds.APIKey == "" {
		return nil, fmt.Errorf("credentials for %s have an empty api key", source)
	}

	return creds, nil
}
