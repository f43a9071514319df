package main

import (
	"log"

	"github.com/spf13/cobra"

	songforge "github.com/cbegin/songforge-go"
)

var (
	playSampleRate int
	playVolume     float64
)

func init() {
	playCmd.Flags().IntVar(&playSampleRate, "sample-rate", 48000, "output sample rate")
	playCmd.Flags().Float64Var(&playVolume, "volume", 1.0, "master volume scalar")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <composition file>",
	Short: "Play a composition through the audio output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(args[0])
	},
}

func runPlay(path string) error {
	comp, err := songforge.LoadCompositionFile(path)
	if err != nil {
		return err
	}
	eng, err := songforge.NewEngine(playSampleRate, songforge.WithMasterVolume(playVolume))
	if err != nil {
		return err
	}
	defer eng.Close()

	tr := eng.Transport()
	if err := tr.Load(comp); err != nil {
		return err
	}
	if err := tr.Play(); err != nil {
		return err
	}
	log.Printf("playing %q (%.0f BPM, %d tracks)", comp.Title, comp.Tempo, len(comp.Tracks))
	tr.Wait()
	log.Println("playback completed")
	return nil
}
