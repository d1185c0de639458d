// Package terminal provides utilities for terminal operations such as clearing
// echoed secrets and sizing rendered output to the window.
package terminal

import (
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/term"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 120

// Width returns the current terminal width of stdout, or DefaultWidth.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return DefaultWidth
}

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadSecret reads a line from the terminal without echo.
func ReadSecret(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClearPreviousLines clears text from the terminal that was previously printed.
// textLength is the number of characters of prompt plus user input; the line the
// cursor moved to after Enter is cleared as well.
func ClearPreviousLines(w io.Writer, textLength int) {
	totalLines := LinesFor(textLength, Width())
	linesToClear := totalLines + 1

	for i := 0; i < linesToClear; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < linesToClear-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

// LinesFor returns how many terminal lines textLength characters occupy.
func LinesFor(textLength, width int) int {
	if width <= 0 {
		width = DefaultWidth
	}
	lines := int(math.Ceil(float64(textLength) / float64(width)))
	if lines < 1 {
		return 1
	}
	return lines
}
