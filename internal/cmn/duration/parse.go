package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var dayPattern = regexp.MustCompile(`(\d+)d`)

// Parse parses a non-negative duration. On top of the time.ParseDuration
// units it accepts a 'd' suffix for whole days, as in "1d" or "2d12h".
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration string")
	}

	var convErr error
	expanded := dayPattern.ReplaceAllStringFunc(s, func(match string) string {
		days, err := strconv.Atoi(match[:len(match)-1])
		if err != nil {
			convErr = err
		}
		return strconv.Itoa(days*24) + "h"
	})
	if convErr != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, convErr)
	}

	d, err := time.ParseDuration(expanded)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration not allowed: %q", s)
	}
	return d, nil
}
