// Package ui implements the game screen as a bubbletea program.
//
// The [Model] drives the same session, controller and scan bridge the CLI commands use. A keyboard wedge
// scanner (or the player) types a card link into the scan prompt and presses enter. While the prompt is
// empty single keys act on playback: r replays, p pauses, n plays a random track of the selected playlist,
// m cycles the start mode and v reveals the current song. d and l open the device and playlist lists.
//
// Notifications arrive on the channel of a [session.ChanNotifier] and fade after a few seconds.
package ui
