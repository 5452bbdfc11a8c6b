// SellerPulse - Marketplace Performance Data Ingestion
// Copyright 2026 SellerPulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sellerpulse/sellerpulse

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sellerpulse/sellerpulse/internal/models"
)

// GetCredentials returns the encrypted credential payload for (org, source).
// The second return value is false when no credentials are configured, which
// the sync engine reports as a skipped source rather than an error.
func (db *DB) GetCredentials(ctx context.Context, orgID int64, source models.Source) (string, bool, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx,
		"SELECT encrypted_payload FROM source_credentials WHERE org_id = ? AND source = ?",
		orgID, string(source)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query credentials for %s: %w", source, err)
	}
	return payload, true, nil
}

// PutCredentials stores (or replaces) the encrypted credential payload for
// (org, source).
func (db *DB) PutCredentials(ctx context.Context, orgID int64, source models.Source, encryptedPayload string) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO source_credentials (
		org_id, source, encrypted_payload, updated_at
	) VALUES (?, ?, ?, now())
	ON CONFLICT (org_id, source) DO UPDATE SET
		encrypted_payload = EXCLUDED.encrypted_payload,
		updated_at = now()`,
		orgID, string(source), encryptedPayload)
	if err != nil {
		return fmt.Errorf("failed to store credentials for %s: %w", source, err)
	}
	return nil
}

// ConfiguredOrgs returns the distinct organizations that have at least one
// source configured. The scheduler syncs each of them on every tick.
func (db *DB) ConfiguredOrgs(ctx context.Context) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT DISTINCT org_id FROM source_credentials ORDER BY org_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query configured orgs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orgs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan org id: %w", err)
		}
		orgs = append(orgs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate configured orgs: %w", err)
	}

	return orgs, nil
}
