package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

var _ models.Repository[*models.Play] = (*PlayRepository)(nil)

// PlayRepository implements [models.Repository] for the [models.Play] history.
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new [PlayRepository] with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

const playColumns = `id, session_id, source, deck_id, card_id, track_uri, title, artist, year, offset_ms, device_id, played_at, created_at`

func scanPlay(row rowScanner) (*models.Play, error) {
	var (
		p         models.Play
		id        string
		source    string
		createdAt time.Time
	)

	err := row.Scan(&id, &p.SessionID, &source, &p.DeckID, &p.CardID, &p.TrackURI, &p.Title, &p.Artist, &p.Year,
		&p.OffsetMs, &p.DeviceID, &p.PlayedAt, &createdAt)
	if err != nil {
		return nil, err
	}

	p.Source = models.PlaySource(source)
	p.SetID(id)
	p.SetCreatedAt(createdAt)
	p.SetUpdatedAt(createdAt)
	return &p, nil
}

// Create appends a play to the history with a generated ID
func (r *PlayRepository) Create(p *models.Play) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	p.SetID(shared.GenerateID())

	query := `INSERT INTO plays (` + playColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query, p.ID(), p.SessionID, string(p.Source), p.DeckID, p.CardID, p.TrackURI,
		p.Title, p.Artist, p.Year, p.OffsetMs, p.DeviceID, p.PlayedAt, p.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert play: %w", err)
	}
	return nil
}

// Get retrieves a play by ID
func (r *PlayRepository) Get(id string) (*models.Play, error) {
	p, err := scanPlay(r.db.QueryRow(`SELECT `+playColumns+` FROM plays WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "play", id)
	}
	return p, nil
}

// Delete removes a play by ID
func (r *PlayRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM plays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete play: %w", err)
	}
	return expectAffected(result, "play", id)
}

// Recent returns up to limit plays, newest first. A non-positive limit returns every play.
func (r *PlayRepository) Recent(limit int) ([]*models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays ORDER BY played_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []*models.Play
	for rows.Next() {
		p, err := scanPlay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		plays = append(plays, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return plays, nil
}

// Count returns the number of recorded plays.
func (r *PlayRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM plays`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count plays: %w", err)
	}
	return n, nil
}

// Clear deletes the whole history.
func (r *PlayRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM plays`); err != nil {
		return fmt.Errorf("failed to clear plays: %w", err)
	}
	return nil
}
