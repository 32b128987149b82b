package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Command
	}{
		{"plain message", "hello everyone", Command{Kind: CommandPlain, Text: "hello everyone"}},
		{"plain with leading spaces", "  hi", Command{Kind: CommandPlain, Text: "  hi"}},
		{"exit", "/exit", Command{Kind: CommandExit}},
		{"exit is case sensitive", "/EXIT", Command{Kind: CommandPlain, Text: "/EXIT"}},
		{"users", "/users", Command{Kind: CommandListUsers}},
		{"dm", "/dm bob hey there", Command{Kind: CommandDirect, Target: "bob", Text: "hey there"}},
		{"dm message keeps inner spaces", "/dm bob  two  spaces", Command{Kind: CommandDirect, Target: "bob", Text: " two  spaces"}},
		{"dm without message", "/dm bob", Command{Kind: CommandInvalid, Usage: "Usage: /dm <username> <message>"}},
		{"dm without anything", "/dm", Command{Kind: CommandInvalid, Usage: "Usage: /dm <username> <message>"}},
		{"dm blank message", "/dm bob   ", Command{Kind: CommandInvalid, Usage: "Usage: /dm <username> <message>"}},
		{"close", "/close bob", Command{Kind: CommandCloseDM, Target: "bob"}},
		{"close without target", "/close", Command{Kind: CommandInvalid, Usage: "Usage: /close <username>"}},
		{"close with extra words", "/close bob now", Command{Kind: CommandInvalid, Usage: "Usage: /close <username>"}},
		{"unknown slash broadcasts", "/shrug", Command{Kind: CommandPlain, Text: "/shrug"}},
		{"empty line is plain", "", Command{Kind: CommandPlain, Text: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.line))
		})
	}
}
