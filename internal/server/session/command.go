package session

import "strings"

// CommandKind discriminates the closed set of things a decoded chat line can
// mean. Parsing happens exactly once, at the protocol boundary; the session
// loop dispatches on the kind instead of re-testing string prefixes.
type CommandKind int

const (
	// CommandPlain is an ordinary chat message, broadcast verbatim.
	CommandPlain CommandKind = iota
	// CommandExit ends the session.
	CommandExit
	// CommandDirect sends Text to Target only.
	CommandDirect
	// CommandCloseDM closes the recorded DM thread with Target.
	CommandCloseDM
	// CommandListUsers requests the online-user snapshot.
	CommandListUsers
	// CommandInvalid is a recognized command with bad arguments; Usage
	// carries the hint returned to the sender.
	CommandInvalid
)

type Command struct {
	Kind   CommandKind
	Target string
	Text   string
	Usage  string
}

// ParseCommand classifies one decoded line. Commands are matched exactly,
// lowercase only. Slash-prefixed text that is not a recognized command
// broadcasts as a plain message, matching the behavior clients already
// rely on.
func ParseCommand(line string) Command {
	switch {
	case line == "/exit":
		return Command{Kind: CommandExit}

	case line == "/users":
		return Command{Kind: CommandListUsers}

	case line == "/dm" || strings.HasPrefix(line, "/dm "):
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 3 || parts[1] == "" || strings.TrimSpace(parts[2]) == "" {
			return Command{Kind: CommandInvalid, Usage: "Usage: /dm <username> <message>"}
		}
		return Command{Kind: CommandDirect, Target: parts[1], Text: parts[2]}

	case line == "/close" || strings.HasPrefix(line, "/close "):
		target := strings.TrimSpace(strings.TrimPrefix(line, "/close"))
		if target == "" || strings.Contains(target, " ") {
			return Command{Kind: CommandInvalid, Usage: "Usage: /close <username>"}
		}
		return Command{Kind: CommandCloseDM, Target: target}

	default:
		return Command{Kind: CommandPlain, Text: line}
	}
}
