package xmplayer

import "fmt"

// Context is the mutable playback state for one module, spec.md §3's
// "Context (mutable playback state)". It owns the per-channel state array
// and the scheduler/mixer bookkeeping; every method is documented as safe
// to call only when GenerateSamples is not itself executing, matching the
// teacher's Player (one goroutine at a time, mutation happens outside the
// audio callback).
type Context struct {
	mod        *Module
	sampleRate int

	channels []channelState

	globalVolume int // 0..MaxVolume
	tempo        int // ticks per row
	bpm          int

	order, row, tick int
	delayRowsRemaining int

	jumpPending bool
	jumpOrder   int
	jumpRow     int

	breakPending bool
	breakRow     int

	patternLoopPending bool
	patternLoopRow     int

	loopCount    int
	maxLoopCount int
	halted       bool

	remainingSamplesInTick int64

	instrumentMuted [MaxInstruments]bool

	samplesSinceTrigger []int64

	generating bool // set while GenerateSamples runs; no method checks it
}

// newContext builds a fresh Context from a loaded Module, spec.md §3
// "Channel states zeroed at context creation".
func newContext(mod *Module, sampleRate int) *Context {
	c := &Context{
		mod:                 mod,
		sampleRate:          sampleRate,
		channels:            make([]channelState, mod.Channels),
		samplesSinceTrigger: make([]int64, mod.Channels),
		globalVolume:        MaxVolume,
		tempo:               mod.DefaultTempo,
		bpm:                 mod.DefaultBPM,
		order:               0,
		row:                 0,
		tick:                0,
	}
	for i := range c.channels {
		c.channels[i].reset()
	}
	c.remainingSamplesInTick = tempoDurationSamples(c.bpm, c.sampleRate)
	return c
}

// NumChannels reports how many channels the loaded module declares.
func (c *Context) NumChannels() int { return len(c.channels) }

// Title returns the loaded module's display name.
func (c *Context) Title() string { return c.mod.Title }

// Close releases no resources (Go is garbage collected) but is kept as a
// documented no-op for lifecycle parity with the language-neutral contract,
// spec.md §6.
func (c *Context) Close() {}

// Reset returns the Context to its just-loaded state: order 0, row 0, tick
// 0, default tempo/bpm, all channels silent, spec.md §3.
func (c *Context) Reset() {
	for i := range c.channels {
		c.channels[i].reset()
		c.samplesSinceTrigger[i] = 0
	}
	c.globalVolume = MaxVolume
	c.tempo = c.mod.DefaultTempo
	c.bpm = c.mod.DefaultBPM
	c.order, c.row, c.tick = 0, 0, 0
	c.delayRowsRemaining = 0
	c.jumpPending, c.breakPending, c.patternLoopPending = false, false, false
	c.loopCount = 0
	c.halted = false
	c.remainingSamplesInTick = tempoDurationSamples(c.bpm, c.sampleRate)
}

// Seek relocates playback to an explicit order/row/tick without resetting
// channel state, spec.md §6.
func (c *Context) Seek(order, row, tick int) error {
	if order < 0 || order >= c.mod.OrderLength {
		return fmt.Errorf("xmplayer: order %d out of range [0,%d)", order, c.mod.OrderLength)
	}
	pat := &c.mod.Patterns[c.mod.Order[order]]
	if row < 0 || row >= pat.NumRows {
		return fmt.Errorf("xmplayer: row %d out of range [0,%d)", row, pat.NumRows)
	}
	if tick < 0 || tick >= c.tempo {
		return fmt.Errorf("xmplayer: tick %d out of range [0,%d)", tick, c.tempo)
	}
	c.order, c.row, c.tick = order, row, tick
	c.delayRowsRemaining = 0
	c.jumpPending, c.breakPending, c.patternLoopPending = false, false, false
	c.halted = false
	return nil
}

// SetMaxLoopCount bounds how many times the order table may wrap before
// playback halts; 0 means infinite, spec.md §6.
func (c *Context) SetMaxLoopCount(n int) { c.maxLoopCount = n }

// GetLoopCount reports how many times playback has wrapped to the restart
// position.
func (c *Context) GetLoopCount() int { return c.loopCount }

// MuteChannel silences or unsilences one channel's mixer output without
// affecting its scheduler state.
func (c *Context) MuteChannel(i int, mute bool) {
	if i < 0 || i >= len(c.channels) {
		return
	}
	c.channels[i].muted = mute
}

// MuteInstrument silences every channel currently playing the given
// instrument, and any future trigger of it, spec.md §6 "(if enabled)".
func (c *Context) MuteInstrument(i int, mute bool) {
	if i < 0 || i >= MaxInstruments {
		return
	}
	c.instrumentMuted[i] = mute
}

// SamplesSinceLastTrigger answers the timing query spec.md §6 names: how
// many output frames have been generated since the channel last triggered
// a note. ok is false for an out-of-range channel index.
func (c *Context) SamplesSinceLastTrigger(channel int) (int64, bool) {
	if channel < 0 || channel >= len(c.samplesSinceTrigger) {
		return 0, false
	}
	return c.samplesSinceTrigger[channel], true
}

// GenerateSamples is the engine's sole scheduling point, spec.md §4.5 /
// §5: it advances the tick pump frame-by-frame, calling the scheduler at
// tick boundaries, and writes `frames` interleaved stereo frames into out
// (len(out) must be >= 2*frames).
func (c *Context) GenerateSamples(out []float32, frames int) {
	c.generating = true
	defer func() { c.generating = false }()

	for f := 0; f < frames; f++ {
		c.remainingSamplesInTick -= TickSubsamples
		if c.remainingSamplesInTick <= 0 {
			c.onTick()
			c.remainingSamplesInTick += tempoDurationSamples(c.bpm, c.sampleRate)
		}

		l, r := c.mixFrame()
		out[2*f] = l
		out[2*f+1] = r

		for i := range c.channels {
			if c.channels[i].active {
				c.samplesSinceTrigger[i]++
			}
		}
	}
}

// ChannelNoteData is a snapshot of one channel's current playback state,
// used by the cmd/xmplay UI's live pattern display, SPEC_FULL.md §6's
// expansion of the teacher's NoteDataFor/player state surface.
type ChannelNoteData struct {
	Active     bool
	Muted      bool
	Note       int
	Instrument int
	Volume     int
	Panning    int
	Period     int
}

// PlayerState is a snapshot of the whole Context's scheduler position,
// again grounded on the teacher's player.go State()/PlayerState surface.
type PlayerState struct {
	Order int
	Row   int
	Tick  int
	Tempo int
	BPM   int

	GlobalVolume int
	LoopCount    int
	Halted       bool
}

// State returns a snapshot safe to read from outside GenerateSamples.
func (c *Context) State() PlayerState {
	return PlayerState{
		Order:        c.order,
		Row:          c.row,
		Tick:         c.tick,
		Tempo:        c.tempo,
		BPM:          c.bpm,
		GlobalVolume: c.globalVolume,
		LoopCount:    c.loopCount,
		Halted:       c.halted,
	}
}

// NoteDataFor returns a snapshot of a single channel's note state.
func (c *Context) NoteDataFor(channel int) (ChannelNoteData, bool) {
	if channel < 0 || channel >= len(c.channels) {
		return ChannelNoteData{}, false
	}
	ch := &c.channels[channel]
	return ChannelNoteData{
		Active:     ch.active,
		Muted:      ch.muted,
		Note:       ch.note,
		Instrument: ch.instrumentIdx + 1,
		Volume:     ch.volume,
		Panning:    ch.panning,
		Period:     ch.period,
	}, true
}
