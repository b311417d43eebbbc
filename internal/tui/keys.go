package tui

// Keybinding constants
const (
	KeyQuit    = "q"
	KeyCtrlC   = "ctrl+c"
	KeyUp      = "up"
	KeyDown    = "down"
	KeyJ       = "j"
	KeyK       = "k"
	KeyEnter   = "enter"
	KeyEsc     = "esc"
	KeyAscend  = "u"
	KeyDescend = "d"
	KeyRespawn = "r"
	KeyWin     = "w"
	KeyLose    = "l"
)

// taskKey maps the digit keys 1-9 to task ids.
func taskKey(key string) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	return int(key[0] - '0'), true
}

// HelpView returns a one-line help bar with common keybindings.
func HelpView() string {
	return StyleHelp.Render("u/d: stairs up/down | r: respawn | w/l: win/lose battle | 1-9: advance task | j/k: scroll log | q: quit")
}
