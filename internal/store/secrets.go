package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
)

// SetSecret stores a sealed credential under name, replacing any previous
// value. The sealed form is whatever SecretCipher.SealString produced.
func (s *Store) SetSecret(name string, sealed string) error {
	_, err := s.db.Exec(`
		INSERT INTO secrets (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			value=excluded.value, updated_at=CURRENT_TIMESTAMP`,
		name, sealed)
	if err != nil {
		return fmt.Errorf("set secret: %w", err)
	}
	return nil
}

// GetSecret returns the sealed value for name. The second return is false
// when no such secret exists.
func (s *Store) GetSecret(name string) (string, bool, error) {
	var sealed string
	err := s.db.QueryRow(`SELECT value FROM secrets WHERE name = ?`, name).Scan(&sealed)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get secret: %w", err)
	}
	return sealed, true, nil
}

func (s *Store) DeleteSecret(name string) error {
	_, err := s.db.Exec(`DELETE FROM secrets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete secret: %w", err)
	}
	return nil
}

// ListSecretNames returns the names of all stored secrets, sorted. Values
// stay sealed in the database.
func (s *Store) ListSecretNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM secrets`)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rows.Err()
}

// SecretCipher seals and opens stored secret values (the vault implements
// this).
type SecretCipher interface {
	SealString(plaintext string) (string, error)
	OpenString(encoded string) (string, error)
}

// SecretSource adapts the sealed secret table to credential lookups: values
// are unsealed on read and never cached.
type SecretSource struct {
	store *Store
	vault SecretCipher
}

func NewSecretSource(store *Store, vault SecretCipher) *SecretSource {
	return &SecretSource{store: store, vault: vault}
}

func (ss *SecretSource) GetSecret(name string) (string, bool) {
	sealed, found, err := ss.store.GetSecret(name)
	if err != nil {
		slog.Error("secret lookup failed", "name", name, "error", err)
		return "", false
	}
	if !found {
		return "", false
	}
	plain, err := ss.vault.OpenString(sealed)
	if err != nil {
		slog.Error("secret unseal failed", "name", name, "error", err)
		return "", false
	}
	return plain, true
}
