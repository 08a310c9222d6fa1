package interaction

// Level classifies a status message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "info"
}

// Status is the single human-readable line shown to the user.
type Status struct {
	Message string
	Level   Level
	Fatal   bool // Solve failed with no fallback left; shown as a banner
}
