package ui

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ClearScreen homes the cursor and wipes the alternate buffer.
func ClearScreen() {
	fmt.Print("\033[H\033[2J")
}

// EnterAltScreen switches the terminal to the alternate buffer with the
// cursor hidden and stdin echo suppressed, and returns the restore function.
// On a non-terminal stdout it does nothing.
func EnterAltScreen() func() {
	stdoutFD := int(os.Stdout.Fd())
	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdoutFD) {
		return func() {}
	}

	fmt.Print("\033[?1049h") // switch to alternate buffer
	fmt.Print("\033[?25l")   // hide cursor

	var restore []func()
	if term.IsTerminal(stdinFD) {
		if undoEcho, err := disableInputEcho(stdinFD); err == nil && undoEcho != nil {
			restore = append(restore, undoEcho)
		}
	}

	return func() {
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
		fmt.Print("\033[?25h")   // show cursor
		fmt.Print("\033[?1049l") // restore main buffer
	}
}
