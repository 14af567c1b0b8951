// package models defines the data model for the hitqr card player
package models

import (
	"time"
)

// Model defines the base interface for all persistent models.
// Implementations include [Credential] and [Play].
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the data access operations shared by every repository.
type Repository[T Model] interface {
	Create(model T) error     // Create inserts a new model into the database
	Get(id string) (T, error) // Get retrieves a model by its ID
	Delete(id string) error   // Delete removes a model from the database by its ID
}

// record carries the identity and timestamps embedded by persistent models.
type record struct {
	id        string
	createdAt time.Time
	updatedAt time.Time
}

func newRecord() record {
	now := time.Now().UTC()
	return record{createdAt: now, updatedAt: now}
}

func (r *record) ID() string           { return r.id }
func (r *record) CreatedAt() time.Time { return r.createdAt }
func (r *record) UpdatedAt() time.Time { return r.updatedAt }

// SetID assigns the identifier, used by repositories on insert and load.
func (r *record) SetID(id string) { r.id = id }

// SetCreatedAt overrides the creation time when loading from storage.
func (r *record) SetCreatedAt(t time.Time) { r.createdAt = t }

// SetUpdatedAt overrides the update time.
func (r *record) SetUpdatedAt(t time.Time) { r.updatedAt = t }
