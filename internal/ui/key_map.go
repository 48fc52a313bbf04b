package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the monitor.
type keyMap struct {
	up     key.Binding
	down   key.Binding
	enter  key.Binding
	back   key.Binding
	pause  key.Binding
	resume key.Binding
	retry  key.Binding
	remove key.Binding
	cancel key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "items")),
		back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		pause:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		resume: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "resume")),
		retry:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "retry failed")),
		remove: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		cancel: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel item")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.pause, k.resume, k.retry, k.remove, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.pause, k.resume, k.retry, k.remove},
		{k.cancel, k.quit},
	}
}
