package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
//
// The single letter bindings only act while the scan prompt is empty, so a link typed by a keyboard
// wedge scanner never triggers them.
type keyMap struct {
	scan      key.Binding
	replay    key.Binding
	pause     key.Binding
	next      key.Binding
	devices   key.Binding
	playlists key.Binding
	mode      key.Binding
	reveal    key.Binding
	enter     key.Binding
	clear     key.Binding
	reload    key.Binding
	back      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		scan:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play link")),
		replay:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "replay")),
		pause:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "random track")),
		devices:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "devices")),
		playlists: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "playlists")),
		mode:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "start mode")),
		reveal:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "reveal")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		clear:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear")),
		reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.scan, k.replay, k.pause, k.next, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.scan, k.replay, k.pause, k.next},
		{k.devices, k.playlists, k.mode, k.reveal},
		{k.quit},
	}
}
