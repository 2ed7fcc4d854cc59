package middleware

import (
	"fmt"
	"strings"

	"github.com/capitalize-ai/call-monitor/internal/fixture"
)

// Command is a call control command accepted over HTTP and websocket.
type Command string

const (
	CommandStart  Command = "start"
	CommandEnd    Command = "end"
	CommandToggle Command = "toggle"
	CommandReset  Command = "reset"
)

// ValidateScriptName validates a script name.
func ValidateScriptName(name string) error {
	return fixture.ValidateName(name)
}

// ValidateCommand parses a control command.
func ValidateCommand(s string) (Command, error) {
	switch c := Command(strings.ToLower(strings.TrimSpace(s))); c {
	case CommandStart, CommandEnd, CommandToggle, CommandReset:
		return c, nil
	default:
		return "", fmt.Errorf("unknown command %q", s)
	}
}
