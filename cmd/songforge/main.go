package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "songforge",
	Short: "Composition playback and export engine",
	Long: `songforge plays symbolic compositions (JSON or YAML) through the
built-in synthesizer and exports them as WAV and MIDI files.`,
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
