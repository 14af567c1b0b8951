// package playback starts and stops snippets on the selected device.
//
// A [Controller] turns a resolved card or a playlist pick into a play request against the remote player.
// Every request takes a fresh token from the session; a request's completion and its auto-stop only act
// while that token is still current, so overlapping scans and rapid replays never leave two stops racing.
package playback
