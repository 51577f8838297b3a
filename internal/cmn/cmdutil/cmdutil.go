package cmdutil

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

// ErrCommandIsEmpty is returned by SplitArgs for a blank command line.
var ErrCommandIsEmpty = errors.New("command is empty")

// SplitArgs splits a command line into arguments. Single and double quotes
// group words, and a backslash escapes the next character outside single
// quotes. No shell expansion is performed.
//
// Example:
//
//	SplitArgs(`python3 train.py --name "churn model"`) =>
//	  []string{"python3", "train.py", "--name", "churn model"}
func SplitArgs(cmdLine string) ([]string, error) {
	var (
		args          []string
		current       []rune
		inToken       bool
		inQuote       bool
		inSingleQuote bool
		inEscape      bool
	)

	for _, r := range cmdLine {
		switch {
		case inEscape:
			current = append(current, r)
			inEscape = false
		case r == '\\' && !inSingleQuote:
			inEscape = true
			inToken = true
		case r == '"' && !inSingleQuote:
			inQuote = !inQuote
			inToken = true
		case r == '\'' && !inQuote:
			inSingleQuote = !inSingleQuote
			inToken = true
		case unicode.IsSpace(r) && !inQuote && !inSingleQuote:
			if inToken {
				args = append(args, string(current))
				current = nil
				inToken = false
			}
		default:
			current = append(current, r)
			inToken = true
		}
	}

	if inQuote || inSingleQuote {
		return nil, fmt.Errorf("unterminated quote in %s", strconv.Quote(cmdLine))
	}
	if inEscape {
		return nil, fmt.Errorf("trailing backslash in %s", strconv.Quote(cmdLine))
	}
	if inToken {
		args = append(args, string(current))
	}
	if len(args) == 0 {
		return nil, ErrCommandIsEmpty
	}
	return args, nil
}
