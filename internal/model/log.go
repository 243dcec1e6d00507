package model

import "strings"

type LogLevel string

const (
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// InferLogLevel classifies a formatted log line by the level token embedded
// in its text. Lines that name no level render as info.
func InferLogLevel(text string) LogLevel {
	switch {
	case strings.Contains(text, "ERROR"):
		return LogLevelError
	case strings.Contains(text, "WARNING"):
		return LogLevelWarning
	default:
		return LogLevelInfo
	}
}

// LogLine is one formatted line from the backend's log buffer, e.g.
// "[2026-08-22 10:15:02] INFO: Checking @handle".
type LogLine struct {
	Text  string   `json:"text"`
	Level LogLevel `json:"level"`
}

func NewLogLine(text string) LogLine {
	return LogLine{Text: text, Level: InferLogLevel(text)}
}
