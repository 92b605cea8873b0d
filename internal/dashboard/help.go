package dashboard

import "github.com/charmbracelet/bubbles/help"

// helpBindings returns the help.KeyMap for the open modal.
func helpBindings(md modal) help.KeyMap {
	switch md {
	case modalJoin, modalLogout:
		return ModalKeyMap()
	case modalResult:
		return ResultKeyMap()
	default:
		return PageKeyMap()
	}
}
