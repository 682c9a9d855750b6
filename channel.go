package xmplayer

// effectKind tags the tick-driven effect currently active on a channel.
// SPEC_FULL.md §9 calls for this in place of dispatching on the raw effect
// byte every tick: the row decode resolves memory once into a channelState's
// activeEffect + resolved params, and per-tick updates switch on the tag.
type effectKind uint8

const (
	effectNone effectKind = iota
	effectArpeggio
	effectPortaUp
	effectPortaDown
	effectTonePorta
	effectTonePortaVolSlide
	effectVibrato
	effectVibratoVolSlide
	effectTremolo
	effectVolSlide
	effectGlobalVolSlide
	effectPanningSlide
	effectTremor
	effectMultiRetrig
	effectFinePortaUp   // tick-0 only, handled at trigger time
	effectFinePortaDown // tick-0 only
)

// effectMemory holds the per-channel-family "last non-zero parameter"
// bytes spec.md §4.4 requires: a zero parameter on a new row reuses the
// last non-zero value for that family, independently per family.
type effectMemory struct {
	volSlide       byte
	fineVolSlideUp byte
	fineVolSlideDn byte
	portaUp        byte
	portaDown      byte
	finePortaUp    byte
	finePortaDown  byte
	xFinePortaUp   byte
	xFinePortaDown byte
	tonePortaSpeed byte
	vibratoSpeed   byte
	vibratoDepth   byte
	tremoloSpeed   byte
	tremoloDepth   byte
	tremorParam    byte
	retrigParam    byte
	sampleOffset   byte
	globalVolSlide byte
	panningSlide   byte
	multiRetrig    byte
}

// pendingTrigger is a note/instrument/volume change queued by a note-delay
// (EDx) effect until its delay tick elapses, generalizing the
// trigger-now-or-later split the teacher's channel.sampleToPlay /
// periodToPlay / volumeToPlay fields model (see SPEC_FULL.md §3).
type pendingTrigger struct {
	active     bool
	delayTicks int
	note       int
	instrument int
	volume     int // -1 = not set
	effectType uint8
	effectParam byte
}

// channelState is the richest per-channel record in the engine, spec.md §3.
type channelState struct {
	instrument *Instrument
	sample     *Sample
	instrumentIdx int
	sampleIdx     int

	note int // 1..96 last triggered note number, used by arpeggio/vibrato/porta

	period       int // current pitch
	origPeriod   int // period before vibrato/tremolo/autovibrato offsets
	portaTarget  int // tone portamento destination period

	samplePosition int64 // fixed point, MicrostepBits fractional bits
	step           int64 // fixed point, added to samplePosition per frame
	pingPongFwd    bool  // current direction for ping-pong loops

	volume  int // 0..MaxVolume, set by notes/volume column/Axy etc
	panning int // 0..MaxPanning

	volumeEnvelopeValue  float64 // 0..1, evaluated each tick
	panningEnvelopeValue float64 // 0..1, evaluated each tick
	envelopeFrame        int
	sustained            bool // true until key-off

	fadeoutVolume int // 0..MaxFadeoutVolume

	// Ramping / click suppression, spec.md §4.5 step e.
	rampVolL, rampVolR     float64 // current ramped output levels
	targetVolL, targetVolR float64
	endOfPreviousSample    [RampingPoints][2]float32
	rampPointsRemaining    int

	mem effectMemory

	activeEffect effectKind
	effectParam  byte

	// Volume-column tick-dependent state, tracked independently of
	// activeEffect since FT2 allows a volume-column slide/vibrato to run
	// alongside an unrelated effect-column command.
	volColSlide     int // per-tick volume delta, 0 = inactive
	volColPanSlide  int // per-tick panning delta, 0 = inactive
	volColVibrato   bool

	vibratoControl  VibratoWaveform
	vibratoPhase    int
	tremoloControl  VibratoWaveform
	tremoloPhase    int

	tremorOn    bool
	tremorTicks int

	rowTick int // ticks elapsed within the current row, for arpeggio cycling

	autovibratoTicks int // ticks since note trigger, for sweep

	patternLoopOrigin int
	patternLoopCount  int

	pending pendingTrigger

	muted  bool
	active bool // producing output this tick
}

func (c *channelState) reset() {
	*c = channelState{
		instrumentIdx: -1,
		sampleIdx:     -1,
		pingPongFwd:   true,
	}
}
