package tui

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"dumdummies/internal/models"
)

// CommandKind is what a line typed into the input asks for.
type CommandKind int

const (
	CmdChat CommandKind = iota
	CmdDonate
	CmdRequest
	CmdApprove
	CmdReject
	CmdClaim
	CmdStart
	CmdEnd
	CmdKey
	CmdQuit
)

// Command is a parsed input line. Index is 1-based into the requested list.
type Command struct {
	Kind        CommandKind
	Text        string
	AmountCents int64
	Index       int
}

const helpLine = "/donate <$> [msg] · /request <name> · /approve <n> <$> · /reject <n> · /creator · /start · /end · /key · /quit"

var errEmptyLine = errors.New("nothing to send")

// ParseCommand turns an input line into a Command. Lines that do not start
// with a slash are chat.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, errEmptyLine
	}
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CmdChat, Text: line}, nil
	}

	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch name {
	case "/donate", "/d":
		if len(args) < 1 {
			return Command{}, errors.New("usage: /donate <amount> [message]")
		}
		cents, err := parseDollars(args[0])
		if err != nil {
			return Command{}, err
		}
		msg := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
		return Command{Kind: CmdDonate, AmountCents: cents, Text: msg}, nil
	case "/request", "/r":
		if rest == "" {
			return Command{}, errors.New("usage: /request <challenge name>")
		}
		return Command{Kind: CmdRequest, Text: rest}, nil
	case "/approve":
		if len(args) != 2 {
			return Command{}, errors.New("usage: /approve <n> <target>")
		}
		idx, err := parseIndex(args[0])
		if err != nil {
			return Command{}, err
		}
		cents, err := parseDollars(args[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdApprove, Index: idx, AmountCents: cents}, nil
	case "/reject":
		if len(args) != 1 {
			return Command{}, errors.New("usage: /reject <n>")
		}
		idx, err := parseIndex(args[0])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CmdReject, Index: idx}, nil
	case "/creator", "/claim":
		return Command{Kind: CmdClaim}, nil
	case "/start":
		return Command{Kind: CmdStart}, nil
	case "/end":
		return Command{Kind: CmdEnd}, nil
	case "/key":
		return Command{Kind: CmdKey}, nil
	case "/quit", "/q":
		return Command{Kind: CmdQuit}, nil
	default:
		return Command{}, fmt.Errorf("unknown command %s", name)
	}
}

func parseDollars(s string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "$"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return models.DollarsToCents(v), nil
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid challenge number %q", s)
	}
	return n, nil
}
