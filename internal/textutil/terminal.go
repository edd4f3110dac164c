package textutil

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// Tone picks the colour applied by Paint.
type Tone int

const (
	ToneNone Tone = iota
	ToneOK
	ToneWarn
	ToneError
)

// ShouldColorize reports whether writer is a terminal.
func ShouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Paint wraps value in the tone's ANSI colour when colorize is set.
func Paint(value string, tone Tone, colorize bool) string {
	if !colorize {
		return value
	}
	var color string
	switch tone {
	case ToneOK:
		color = ansiGreen
	case ToneWarn:
		color = ansiYellow
	case ToneError:
		color = ansiRed
	default:
		return value
	}
	return color + value + ansiReset
}
