// Package command turns typed player input into a choice index or a
// session command.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrNoMatch is returned when input matches no choice.
	ErrNoMatch = errors.New("no matching choice")
	// ErrAmbiguous is returned when input matches several choices equally well.
	ErrAmbiguous = errors.New("ambiguous choice")
)

// Kind identifies a slash command.
type Kind int

const (
	None Kind = iota
	Quit
	Restart
	State
	Save
)

var commands = map[string]Kind{
	"quit":    Quit,
	"q":       Quit,
	"exit":    Quit,
	"restart": Restart,
	"state":   State,
	"stats":   State,
	"save":    Save,
}

func (k Kind) String() string {
	switch k {
	case Quit:
		return "quit"
	case Restart:
		return "restart"
	case State:
		return "state"
	case Save:
		return "save"
	default:
		return "none"
	}
}

// ParseCommand recognizes "/quit", "/restart", "/state" and "/save".
// Input without a leading slash yields None and no error.
func ParseCommand(input string) (Kind, error) {
	in := strings.TrimSpace(input)
	if !strings.HasPrefix(in, "/") {
		return None, nil
	}
	name := strings.ToLower(strings.TrimSpace(in[1:]))
	if k, ok := commands[name]; ok {
		return k, nil
	}
	return None, fmt.Errorf("unknown command %q", in)
}

// Resolve maps input onto one of labels and returns its zero-based index.
//
// Input is tried as a 1-based number, then as an exact case-insensitive
// label, then as a unique label prefix of at least two characters, and
// last as a typo within a small edit distance.
func Resolve(input string, labels []string) (int, error) {
	in := normalize(input)
	if in == "" {
		return -1, ErrNoMatch
	}

	if n, err := strconv.Atoi(in); err == nil {
		if n < 1 || n > len(labels) {
			return -1, fmt.Errorf("%w: %d is not between 1 and %d", ErrNoMatch, n, len(labels))
		}
		return n - 1, nil
	}

	norm := make([]string, len(labels))
	for i, l := range labels {
		norm[i] = normalize(l)
		if norm[i] == in {
			return i, nil
		}
	}

	if len(in) >= 2 {
		found := -1
		for i, l := range norm {
			if !strings.HasPrefix(l, in) {
				continue
			}
			if found >= 0 {
				return -1, fmt.Errorf("%w: %q", ErrAmbiguous, input)
			}
			found = i
		}
		if found >= 0 {
			return found, nil
		}
	}

	if len(in) < 3 {
		return -1, fmt.Errorf("%w: %q", ErrNoMatch, input)
	}
	best, bestDist, tie := -1, 0, false
	for i, l := range norm {
		dist := levenshtein.ComputeDistance(in, l)
		if dist > levenshteinLimit(len(l)) {
			continue
		}
		switch {
		case best < 0 || dist < bestDist:
			best, bestDist, tie = i, dist, false
		case dist == bestDist:
			tie = true
		}
	}
	if best < 0 {
		return -1, fmt.Errorf("%w: %q", ErrNoMatch, input)
	}
	if tie {
		return -1, fmt.Errorf("%w: %q", ErrAmbiguous, input)
	}
	return best, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
