package main

import (
	"fmt"
	"strconv"
	"strings"
)

// parseLines parses "12" or "12-20" into a 1-based inclusive range.
func parseLines(s string) (start, end int, err error) {
	a, b, found := strings.Cut(strings.TrimSpace(s), "-")
	start, err = strconv.Atoi(strings.TrimSpace(a))
	if err != nil || start < 1 {
		return 0, 0, fmt.Errorf("invalid line range %q", s)
	}
	if !found {
		return start, start, nil
	}
	end, err = strconv.Atoi(strings.TrimSpace(b))
	if err != nil || end < 1 {
		return 0, 0, fmt.Errorf("invalid line range %q", s)
	}
	return start, end, nil
}
