// Package services implements the Spotify Web API operations hitqr depends on.
//
// # Playback Service
//
// [PlaybackService] lists the remote operations used by the session and the playback controller:
// devices, transfer, play, pause, playlists, playlist items, playback state and the user profile.
// [SpotifyService] implements it over net/http; tests use the fake in internal/testing.
//
// Only the response fields hitqr actually reads are decoded. Everything else in the API payloads is ignored.
//
// # Authentication
//
// The service does not authenticate. It is handed an [http.Client] whose transport attaches the bearer token
// (see the auth package), optionally wrapped by [NewRateLimitedClient] to stay under the API rate limit.
//
// # Error Handling
//
// Non-2xx responses become [*APIError]:
//   - every APIError matches [shared.ErrAPIRequest]
//   - status 401 also matches [shared.ErrUnauthorized], the signal to tear the session down
//   - status 404 on device operations also matches [shared.ErrDeviceNotFound]
//
// A failed token refresh inside the transport is reported as [shared.ErrUnauthorized] as well.
package services
