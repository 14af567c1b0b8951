// Package repositories implements SQLite persistence for hitqr.
//
// Key Implementations:
//   - [CredentialRepository] : OAuth token storage, one row per provider
//   - [PlayRepository] : append-only snippet playback history
//
// Lookups that find nothing return an error matching [shared.ErrRecordNotFound].
package repositories
