//go:build !linux
// +build !linux

package ui

// disableInputEcho is a no-op where termios tweaking is not wired up.
func disableInputEcho(int) (func(), error) {
	return nil, nil
}
