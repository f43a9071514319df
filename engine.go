package songforge

import "errors"

type EngineOption func(*engineConfig)

type engineConfig struct {
	volume float64
}

func defaultEngineConfig() engineConfig {
	return engineConfig{volume: 1}
}

// WithMasterVolume sets the initial master volume scalar (default 1.0).
func WithMasterVolume(volume float64) EngineOption {
	return func(cfg *engineConfig) {
		cfg.volume = volume
	}
}

// Engine is the explicit playback context: it owns the analyser and the
// single transport that may drive audio output. No mutable audio state
// lives outside an Engine's lifetime.
type Engine struct {
	sampleRate int
	analyser   *Analyser
	transport  *Transport
}

func NewEngine(sampleRate int, opts ...EngineOption) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.volume < 0 {
		cfg.volume = 0
	}
	an := NewAnalyser()
	return &Engine{
		sampleRate: sampleRate,
		analyser:   an,
		transport: &Transport{
			sampleRate: sampleRate,
			analyser:   an,
			volume:     cfg.volume,
		},
	}, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// Transport returns the engine's single transport session.
func (e *Engine) Transport() *Transport { return e.transport }

// Analyser returns the snapshot source for visualization; pull Refresh then
// Snapshot once per animation frame.
func (e *Engine) Analyser() *Analyser { return e.analyser }

// Close stops any live playback and releases the output.
func (e *Engine) Close() error {
	return e.transport.Stop()
}
