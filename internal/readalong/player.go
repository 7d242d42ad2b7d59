package readalong

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yapvoice/yap/internal/observe"
	"github.com/yapvoice/yap/internal/settings"
	"github.com/yapvoice/yap/pkg/provider/tts"
)

// State is a snapshot of read-along playback, shaped for the frontend.
// CurrentIndex is -1 when no chunk is being spoken.
type State struct {
	Chunks       []string `json:"chunks"`
	CurrentIndex int      `json:"currentIndex"`
	IsPlaying    bool     `json:"isPlaying"`
	IsPaused     bool     `json:"isPaused"`
	Error        string   `json:"error,omitempty"`
}

// Validation errors surfaced verbatim in the frontend.
var (
	ErrNoText      = errors.New("No text to synthesize")
	ErrNoVoice     = errors.New("Please select a voice")
	ErrAlreadyBusy = errors.New("playback already in progress")
	ErrNotPlaying  = errors.New("no playback in progress")
)

// Player drives sequential chunk playback through a TTS provider. Chunks are
// synthesised one at a time in order; state snapshots are pushed to
// subscribers on every transition. All methods are safe for concurrent use.
type Player struct {
	mu   sync.Mutex
	cond *sync.Cond

	provider tts.Provider
	config   func() settings.TTSSettings
	sink     func(index int, audio []byte)
	obs      *observe.Metrics

	state  State
	cancel context.CancelFunc
	gen    int
	subs   map[chan State]struct{}
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithAudioSink delivers each synthesised clip, in order, as it becomes
// available. The sink is called from the playback goroutine and should not
// block for long.
func WithAudioSink(sink func(index int, audio []byte)) PlayerOption {
	return func(p *Player) { p.sink = sink }
}

// WithPlayerMetrics attaches OTel instruments for the active player gauge
// and synthesis latency. A nil value disables instrumentation.
func WithPlayerMetrics(obs *observe.Metrics) PlayerOption {
	return func(p *Player) { p.obs = obs }
}

// NewPlayer creates a stopped player over provider. config supplies the
// chunking mode and limits and is consulted at the start of each playback so
// settings changes apply immediately.
func NewPlayer(provider tts.Provider, config func() settings.TTSSettings, opts ...PlayerOption) *Player {
	p := &Player{
		provider: provider,
		config:   config,
		state:    State{CurrentIndex: -1},
		subs:     map[chan State]struct{}{},
	}
	p.cond = sync.NewCond(&p.mu)
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start validates and chunks text, then begins asynchronous playback with
// the given voice. It returns immediately once the playback goroutine is
// running; progress is observed through Snapshot or Subscribe.
func (p *Player) Start(text, voiceID string) error {
	cfg := p.config()
	chunks := Split(text, cfg.ChunkMode)
	if len(chunks) == 0 {
		return ErrNoText
	}
	if voiceID == "" {
		return ErrNoVoice
	}
	if err := CheckLimits(chunks, cfg.MaxChunks, cfg.MaxCharsPerChunk); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.IsPlaying {
		return ErrAlreadyBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.gen++
	p.state = State{Chunks: chunks, CurrentIndex: -1, IsPlaying: true}
	p.publishLocked()

	if p.obs != nil {
		p.obs.ActivePlayers.Add(ctx, 1)
	}

	go p.run(ctx, p.gen, chunks, voiceID)
	return nil
}

// run is the playback loop. gen guards against a stale goroutine touching
// state after Stop started a newer playback.
func (p *Player) run(ctx context.Context, gen int, chunks []string, voiceID string) {
	for i, chunk := range chunks {
		p.mu.Lock()
		for p.state.IsPaused && p.gen == gen && ctx.Err() == nil {
			p.cond.Wait()
		}
		if p.gen != gen || ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		p.state.CurrentIndex = i
		p.publishLocked()
		p.mu.Unlock()

		synthStart := time.Now()
		audio, err := p.provider.Synthesize(ctx, chunk, voiceID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.finish(gen, "Synthesis failed: "+err.Error())
			return
		}
		if p.obs != nil {
			p.obs.SynthesisDuration.Record(ctx, time.Since(synthStart).Seconds())
		}
		if p.sink != nil {
			p.sink(i, audio)
		}
	}
	p.finish(gen, "")
}

// finish resets playback state at the end of a run, keeping the chunks
// visible in the panel. errMsg is empty on normal completion.
func (p *Player) finish(gen int, errMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state.CurrentIndex = -1
	p.state.IsPlaying = false
	p.state.IsPaused = false
	p.state.Error = errMsg
	p.publishLocked()

	if p.obs != nil {
		p.obs.ActivePlayers.Add(context.Background(), -1)
	}
}

// Pause holds playback before the next chunk. The chunk currently being
// synthesised still completes.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.IsPlaying {
		return ErrNotPlaying
	}
	if !p.state.IsPaused {
		p.state.IsPaused = true
		p.publishLocked()
	}
	return nil
}

// Resume continues a paused playback.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.IsPlaying {
		return ErrNotPlaying
	}
	if p.state.IsPaused {
		p.state.IsPaused = false
		p.cond.Broadcast()
		p.publishLocked()
	}
	return nil
}

// Stop cancels playback and resets state. The chunk list stays visible so
// the panel keeps its content until the next Start.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.IsPlaying {
		return
	}
	p.gen++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state.CurrentIndex = -1
	p.state.IsPlaying = false
	p.state.IsPaused = false
	p.state.Error = ""
	p.cond.Broadcast()
	p.publishLocked()

	if p.obs != nil {
		p.obs.ActivePlayers.Add(context.Background(), -1)
	}
}

// Snapshot returns the current playback state.
func (p *Player) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe registers a snapshot channel. Every state transition is pushed
// to it; slow subscribers miss intermediate snapshots rather than blocking
// playback. The returned func unregisters the channel.
func (p *Player) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	unsubscribe := func() {
		p.mu.Lock()
		delete(p.subs, ch)
		p.mu.Unlock()
	}
	return ch, unsubscribe
}

// publishLocked pushes the current state to all subscribers. Callers must
// hold p.mu.
func (p *Player) publishLocked() {
	for ch := range p.subs {
		select {
		case ch <- p.state:
		default:
		}
	}
}
