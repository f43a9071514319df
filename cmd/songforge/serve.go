package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	songforge "github.com/cbegin/songforge-go"
)

var (
	serveAddr       string
	serveSampleRate int
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8077", "listen address")
	serveCmd.Flags().IntVar(&serveSampleRate, "sample-rate", 48000, "playback sample rate")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve playback control, analysis frames, and exports over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

// server is the HTTP surface for the external generation and visualization
// collaborators: load a composition, control the transport, pull analysis
// snapshots per animation frame, download export artifacts.
type server struct {
	engine *songforge.Engine

	mu      sync.Mutex
	current *songforge.Composition
}

func serve() error {
	eng, err := songforge.NewEngine(serveSampleRate)
	if err != nil {
		return err
	}
	defer eng.Close()
	s := &server{engine: eng}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/composition", s.handleLoad).Methods("POST")
	router.HandleFunc("/play", s.handlePlay).Methods("POST")
	router.HandleFunc("/stop", s.handleStop).Methods("POST")
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/analysis", s.handleAnalysis).Methods("GET")
	router.HandleFunc("/export/wav", s.handleExportWAV).Methods("GET")
	router.HandleFunc("/export/midi", s.handleExportMIDI).Methods("GET")

	log.Printf("listening on %s", serveAddr)
	return http.ListenAndServe(serveAddr, cors.Default().Handler(router))
}

func (s *server) handleLoad(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	comp, err := songforge.ParseComposition(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := s.engine.Transport().Load(comp); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.mu.Lock()
	s.current = comp
	s.mu.Unlock()
	writeJSON(w, map[string]any{"title": comp.Title, "tempo": comp.Tempo, "tracks": len(comp.Tracks)})
}

func (s *server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Transport().Play(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"state": s.engine.Transport().State().String()})
}

func (s *server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Transport().Stop(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"state": s.engine.Transport().State().String()})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	tr := s.engine.Transport()
	writeJSON(w, map[string]any{
		"state":    tr.State().String(),
		"position": tr.Position(),
	})
}

func (s *server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	an := s.engine.Analyser()
	an.Refresh()
	snap := an.Snapshot()
	writeJSON(w, map[string]any{
		"waveform": snap.Waveform,
		"spectrum": snap.Spectrum,
	})
}

func (s *server) loadedComposition(w http.ResponseWriter) *songforge.Composition {
	s.mu.Lock()
	comp := s.current
	s.mu.Unlock()
	if comp == nil {
		http.Error(w, "no composition loaded", http.StatusNotFound)
	}
	return comp
}

func (s *server) handleExportWAV(w http.ResponseWriter, r *http.Request) {
	comp := s.loadedComposition(w)
	if comp == nil {
		return
	}
	samples, err := songforge.RenderComposition(comp, serveSampleRate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := songforge.EncodeWAV(samples, serveSampleRate, 2)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveArtifact(w, data, "audio/wav", "wav")
}

func (s *server) handleExportMIDI(w http.ResponseWriter, r *http.Request) {
	comp := s.loadedComposition(w)
	if comp == nil {
		return
	}
	data, err := songforge.EncodeMIDI(comp)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveArtifact(w, data, "audio/midi", "mid")
}

func serveArtifact(w http.ResponseWriter, data []byte, contentType, ext string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", uuid.NewString()+"."+ext))
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
