package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestCredentialRepository(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	t.Run("Create And Get", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		c := models.NewCredential("spotify", "access", "refresh", "Bearer", expiry)

		if err := repo.Create(c); err != nil {
			t.Fatalf("failed to create credential: %v", err)
		}
		if c.ID() == "" {
			t.Error("credential ID should be set after creation")
		}

		got, err := repo.Get(c.ID())
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got.AccessToken != "access" || got.RefreshToken != "refresh" {
			t.Errorf("unexpected credential: %+v", got)
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %v, got %v", expiry, got.Expiry)
		}
	})

	t.Run("Create Validates", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		if err := repo.Create(models.NewCredential("spotify", "", "", "", time.Time{})); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("GetByProvider Missing", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		_, err := repo.GetByProvider("spotify")
		if !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("Save Replaces Token", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		first := models.NewCredential("spotify", "access1", "refresh1", "Bearer", expiry)
		if err := repo.Save(first); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		second := models.NewCredential("spotify", "access2", "refresh2", "Bearer", expiry.Add(time.Hour))
		if err := repo.Save(second); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		if second.ID() != first.ID() {
			t.Errorf("expected id %s to be kept, got %s", first.ID(), second.ID())
		}

		got, err := repo.GetByProvider("spotify")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got.AccessToken != "access2" || got.RefreshToken != "refresh2" {
			t.Errorf("expected replaced token, got %+v", got)
		}
	})

	t.Run("Zero Expiry", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		if err := repo.Save(models.NewCredential("spotify", "access", "", "Bearer", time.Time{})); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		got, err := repo.GetByProvider("spotify")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if !got.Expiry.IsZero() {
			t.Errorf("expected zero expiry, got %v", got.Expiry)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		c := models.NewCredential("spotify", "access", "refresh", "Bearer", expiry)
		if err := repo.Create(c); err != nil {
			t.Fatalf("failed to create credential: %v", err)
		}

		if err := repo.Delete(c.ID()); err != nil {
			t.Fatalf("failed to delete credential: %v", err)
		}
		if err := repo.Delete(c.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
		}
	})

	t.Run("DeleteAll Is Idempotent", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		if err := repo.Save(models.NewCredential("spotify", "access", "refresh", "Bearer", expiry)); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		for i := range 2 {
			if err := repo.DeleteAll(); err != nil {
				t.Fatalf("DeleteAll call %d failed: %v", i+1, err)
			}
		}

		if _, err := repo.GetByProvider("spotify"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected no credential after DeleteAll, got %v", err)
		}
	})
}

func TestPlayRepository(t *testing.T) {
	song := &models.SongData{ID: "7", URI: "spotify:track:abc123", Title: "Song", Artist: "Artist", Year: "1999"}

	t.Run("Create And Get", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))
		p := models.NewPlay("session1", models.SourceCard, song, 30000, "dev1")
		p.DeckID, p.CardID = "de", "7"

		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create play: %v", err)
		}

		got, err := repo.Get(p.ID())
		if err != nil {
			t.Fatalf("failed to get play: %v", err)
		}
		if got.TrackURI != song.URI || got.OffsetMs != 30000 || got.DeckID != "de" || got.Source != models.SourceCard {
			t.Errorf("unexpected play: %+v", got)
		}
	})

	t.Run("Create Validates", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))
		if err := repo.Create(models.NewPlay("s", models.SourceCard, nil, 0, "")); err == nil {
			t.Error("expected validation error for missing track")
		}
	})

	t.Run("Recent", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))
		base := time.Now().UTC()

		for i := range 3 {
			p := models.NewPlay("s", models.SourcePlaylist, song, i*1000, "dev1")
			p.PlayedAt = base.Add(time.Duration(i) * time.Minute)
			if err := repo.Create(p); err != nil {
				t.Fatalf("failed to create play: %v", err)
			}
		}

		plays, err := repo.Recent(2)
		if err != nil {
			t.Fatalf("failed to list plays: %v", err)
		}
		if len(plays) != 2 {
			t.Fatalf("expected 2 plays, got %d", len(plays))
		}
		if plays[0].OffsetMs != 2000 || plays[1].OffsetMs != 1000 {
			t.Errorf("expected newest first, got offsets %d, %d", plays[0].OffsetMs, plays[1].OffsetMs)
		}

		all, err := repo.Recent(0)
		if err != nil {
			t.Fatalf("failed to list plays: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("expected 3 plays, got %d", len(all))
		}
	})

	t.Run("Count And Clear", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))
		if err := repo.Create(models.NewPlay("s", models.SourceCard, song, 0, "")); err != nil {
			t.Fatalf("failed to create play: %v", err)
		}

		if n, err := repo.Count(); err != nil || n != 1 {
			t.Fatalf("expected 1 play, got %d (%v)", n, err)
		}
		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear plays: %v", err)
		}
		if n, _ := repo.Count(); n != 0 {
			t.Errorf("expected 0 plays after clear, got %d", n)
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewPlayRepository(setupTestDB(t))
		if _, err := repo.Get("nope"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})
}
