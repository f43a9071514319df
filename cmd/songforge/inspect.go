package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/smf"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <midi file>",
	Short: "Print a summary of an exported MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(args[0])
	},
}

func inspect(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse midi file: %w", err)
	}
	fmt.Printf("%s: %d tracks, division %v\n", path, len(s.Tracks), s.TimeFormat)
	for i, track := range s.Tracks {
		var (
			name     string
			bpm      float64
			ons      int
			offs     int
			absTicks int64
		)
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			var ch, key, vel uint8
			switch {
			case ev.Message.GetMetaTrackName(&name):
			case ev.Message.GetMetaTempo(&bpm):
			case ev.Message.GetNoteOn(&ch, &key, &vel):
				ons++
			case ev.Message.GetNoteOff(&ch, &key, &vel):
				offs++
			}
		}
		fmt.Printf("  track %d", i)
		if name != "" {
			fmt.Printf(" %q", name)
		}
		if bpm > 0 {
			fmt.Printf(" tempo=%.1f BPM", bpm)
		}
		fmt.Printf(": %d note-ons, %d note-offs, %d ticks\n", ons, offs, absTicks)
	}
	return nil
}
