package log

import "strings"

type LogLevel int

const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	Fatal
)

// Parse converts a configuration string into a LogLevel.
// Unknown values default to Info.
func Parse(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return Debug
	case "INFO":
		return Info
	case "WARN", "WARNING":
		return Warn
	case "ERROR":
		return Error
	case "FATAL":
		return Fatal
	default:
		return Info
	}
}

func (l LogLevel) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "INFO"
	}
}

// Color returns the ANSI color escape used for terminal output.
func Color(l LogLevel) string {
	switch l {
	case Debug:
		return "\033[36m" // cyan
	case Info:
		return "\033[32m" // green
	case Warn:
		return "\033[33m" // yellow
	case Error:
		return "\033[31m" // red
	case Fatal:
		return "\033[35m" // magenta
	default:
		return "\033[0m"
	}
}
