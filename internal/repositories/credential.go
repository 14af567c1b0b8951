package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

var _ models.Repository[*models.Credential] = (*CredentialRepository)(nil)

// CredentialRepository implements [models.Repository] for [models.Credential] persistence.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

const credentialColumns = `id, provider, access_token, refresh_token, token_type, scope, expiry, created_at, updated_at`

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		id, provider, access, refresh, tokenType, scope string
		expiry                                           sql.NullTime
		createdAt, updatedAt                             time.Time
	)

	if err := row.Scan(&id, &provider, &access, &refresh, &tokenType, &scope, &expiry, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	c := models.NewCredential(provider, access, refresh, tokenType, expiry.Time)
	c.Scope = scope
	c.SetID(id)
	c.SetCreatedAt(createdAt)
	c.SetUpdatedAt(updatedAt)
	return c, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// Create inserts a new credential with a generated ID
func (r *CredentialRepository) Create(c *models.Credential) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	c.SetID(shared.GenerateID())

	query := `INSERT INTO credentials (` + credentialColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, c.ID(), c.Provider, c.AccessToken, c.RefreshToken, c.TokenType, c.Scope,
		nullTime(c.Expiry), c.CreatedAt(), c.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// Get retrieves a credential by ID
func (r *CredentialRepository) Get(id string) (*models.Credential, error) {
	row := r.db.QueryRow(`SELECT `+credentialColumns+` FROM credentials WHERE id = ?`, id)
	c, err := scanCredential(row)
	if err != nil {
		return nil, notFound(err, "credential", id)
	}
	return c, nil
}

// GetByProvider retrieves the credential stored for provider
func (r *CredentialRepository) GetByProvider(provider string) (*models.Credential, error) {
	row := r.db.QueryRow(`SELECT `+credentialColumns+` FROM credentials WHERE provider = ?`, provider)
	c, err := scanCredential(row)
	if err != nil {
		return nil, notFound(err, "credential for provider", provider)
	}
	return c, nil
}

// Save stores the token for c.Provider, replacing whatever was stored before.
//
// The row id and creation time survive a replace so refreshes keep the original record.
func (r *CredentialRepository) Save(c *models.Credential) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if existing, err := r.GetByProvider(c.Provider); err == nil {
		c.SetID(existing.ID())
		c.SetCreatedAt(existing.CreatedAt())
	} else {
		c.SetID(shared.GenerateID())
	}
	c.SetUpdatedAt(time.Now().UTC())

	query := `
		INSERT INTO credentials (` + credentialColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			scope = excluded.scope,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query, c.ID(), c.Provider, c.AccessToken, c.RefreshToken, c.TokenType, c.Scope,
		nullTime(c.Expiry), c.CreatedAt(), c.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Delete removes a credential by ID
func (r *CredentialRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return expectAffected(result, "credential", id)
}

// DeleteAll removes every stored credential. Deleting from an empty table is not an error.
func (r *CredentialRepository) DeleteAll() error {
	if _, err := r.db.Exec(`DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
