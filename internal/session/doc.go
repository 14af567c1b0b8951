// Package session holds the state of one authenticated game session.
//
// A [Session] is created when a valid token becomes available and dropped on logout. It is the single
// source of truth for the loaded devices and playlists, the selected device and playlist, the song
// loaded for replay and whether a snippet is playing.
//
// # Writers
//
// Each field has one writer:
//   - devices, current device and playlists are written by the loaders ([Session.LoadDevices],
//     [Session.LoadPlaylists]) and by explicit selection
//   - song, offset and the playing flag are written by the playback controller
//
// # Play requests and the stop timer
//
// Every play request takes a token from [Session.BeginPlayRequest], which also cancels the pending
// auto-stop. Results of a request are applied only while its token is still current, so a slow request
// finishing after a newer one can't touch the newer one's state or timer. At most one stop timer exists.
//
// Scanned cards are numbered with [Session.BeginScan] as soon as the decode is accepted, before the card is
// looked up. [Session.BeginScanRequest] only hands out a token while that number is still the latest, so
// a card whose lookup was slow is dropped once a later card was scanned. Pausing takes a fresh token with
// [Session.InvalidateRequest], which leaves a play call still in flight stale.
//
// # Teardown
//
// [Session.LogOut] stops the timer, resets every field, clears stored credentials and bumps the
// generation. Loads and requests that were in flight at that moment find the generation changed and
// drop their results.
package session
