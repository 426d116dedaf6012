package logging

// Level is a log severity, ordered so that Level values are directly
// comparable: a logger configured at level L emits a message at level M
// whenever M <= L.
type Level uint

const (
	// LevelDisabled suppresses all log output.
	LevelDisabled Level = iota
	// LevelError logs only fatal errors.
	LevelError
	// LevelWarn additionally logs non-fatal errors.
	LevelWarn
	// LevelInfo additionally logs basic execution information: plugin
	// installs, module loads, kernel lifecycle events.
	LevelInfo
	// LevelDebug additionally logs resolver/cache decisions and other
	// detail useful while diagnosing a specific run.
	LevelDebug
	// LevelTrace logs everything, including per-specifier resolution
	// steps.
	LevelTrace
)

var levelNames = [...]string{
	LevelDisabled: "disabled",
	LevelError:    "error",
	LevelWarn:     "warn",
	LevelInfo:     "info",
	LevelDebug:    "debug",
	LevelTrace:    "trace",
}

// NameToLevel resolves a level name (as accepted by the CLI's
// --log-level flag) to its Level value. The returned bool is false for
// an unrecognized name, in which case the Level returned is
// LevelDisabled.
func NameToLevel(name string) (Level, bool) {
	for level, candidate := range levelNames {
		if candidate == name {
			return Level(level), true
		}
	}
	return LevelDisabled, false
}

// String renders l using the same names NameToLevel accepts.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}
