package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the import progress view.
type KeyMap struct {
	// Stop cancels the running import after the current record.
	Stop key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Stop: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "stop"),
		),
	}
}

// HelpText renders a binding as "key to action".
func HelpText(b key.Binding) string {
	h := b.Help()
	return h.Key + " to " + h.Desc
}
