// Command noteflow is a piano trainer for the terminal.
//
// Usage:
//
//	noteflow [flags]              interactive trainer
//	noteflow songs [--export dir] list the song library
//	noteflow play <title>         play a song and print its progress
//
// Configuration lives in ~/.config/noteflow/config.json; song files in
// ~/.config/noteflow/songs/*.yaml are added to the built-in library.
package main

import (
	"fmt"
	"os"

	"noteflow/midi"
)

func main() {
	err := rootCmd.Execute()
	midi.CloseDriver()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
