package engine

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color codes for terminal output. Automatically disabled when
// stderr is not a terminal (piped/redirected).
var (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m"
)

func init() {
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		Reset = ""
		Bold = ""
		Red = ""
		Green = ""
		Yellow = ""
		Blue = ""
		Cyan = ""
		Gray = ""
	}
}
