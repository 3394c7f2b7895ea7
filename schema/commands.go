package schema

import "strings"

// Command is a keyboard command surfaced by the extension.
type Command string

const (
	CommandNextTab            Command = "next-tab"
	CommandPreviousTab        Command = "previous-tab"
	CommandMoveTabRight       Command = "move-tab-right"
	CommandMoveTabLeft        Command = "move-tab-left"
	CommandMoveTabGroupRight  Command = "move-tab-group-right"
	CommandMoveTabGroupLeft   Command = "move-tab-group-left"
	CommandOpenInCurrentGroup Command = "open-in-current-group"
)

// Commands lists every supported command in manifest order.
var Commands = []Command{
	CommandNextTab,
	CommandPreviousTab,
	CommandMoveTabRight,
	CommandMoveTabLeft,
	CommandMoveTabGroupRight,
	CommandMoveTabGroupLeft,
	CommandOpenInCurrentGroup,
}

// legacyCommands maps the names used by earlier manifests.
var legacyCommands = map[string]Command{
	"TAH_NextTab":            CommandNextTab,
	"TAH_PreviousTab":        CommandPreviousTab,
	"TAH_MoveTabRight":       CommandMoveTabRight,
	"TAH_MoveTabLeft":        CommandMoveTabLeft,
	"TAH_MoveTabGroupRight":  CommandMoveTabGroupRight,
	"TAH_MoveTabGroupLeft":   CommandMoveTabGroupLeft,
	"TAH_OpenInCurrentGroup": CommandOpenInCurrentGroup,
}

// ParseCommand resolves a command name, accepting legacy aliases.
func ParseCommand(name string) (Command, error) {
	trimmed := strings.TrimSpace(name)
	if cmd, ok := legacyCommands[trimmed]; ok {
		return cmd, nil
	}
	for _, cmd := range Commands {
		if string(cmd) == trimmed {
			return cmd, nil
		}
	}
	return "", ErrUnknownCommand
}
