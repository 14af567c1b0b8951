// Package models defines the records shared by the hitqr packages.
//
// The package contains two categories of types:
//
// 1. Game records: short-lived values passed between the parser, resolver, session and controller
//   - [CardReference] : deck and card id parsed from a scanned card link
//   - [CatalogEntry] : one resolved row of a deck catalog
//   - [SongData] : the track currently loaded for replay
//   - [Device], [Playlist], [PlaylistTrack], [PlaybackState] : typed views of remote API data
//
// 2. Persistent entities: database-backed records
//   - [Credential] : stored OAuth token for the Spotify account
//   - [Play] : one snippet playback in the history log
//
// Persistent entities implement the [Model] interface providing ID, timestamps and validation.
package models
