// Package utils provides small helpers shared by the command and its
// packages.
package utils

import (
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands tilde and all environment variables from the given path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return os.ExpandEnv(path)
}

// Truncate shortens s to n terminal columns, ending it with an ellipsis.
// Combining marks take no column and stay with their letter.
func Truncate(s string, n int) string {
	if n <= 0 || runewidth.StringWidth(s) <= n {
		return s
	}
	return strings.TrimSpace(runewidth.Truncate(s, n-1, "")) + "…"
}
