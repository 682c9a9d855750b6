package xmplayer

// This file is the effect processor, spec.md §4.4. Grounded on the
// teacher's channelTick per-tick switch on c.effect (player.go) and
// convertS3MEffect's effect-family mapping idea (s3m.go), generalized from
// MOD/S3M's dozen commands to XM's full set. Per SPEC_FULL.md §9, effect
// state is modeled as channelState.effectMemory (named fields, one per
// family) plus a channelState.activeEffect tag resolved once per row
// instead of re-dispatching on the raw effect byte every tick.

// Effect-column type codes, numbered the way FT2 stores them on disk.
const (
	effArpeggio         = 0x00
	effPortaUp          = 0x01
	effPortaDown        = 0x02
	effTonePorta        = 0x03
	effVibrato          = 0x04
	effTonePortaVolSlide = 0x05
	effVibratoVolSlide   = 0x06
	effTremolo          = 0x07
	effSetPanning       = 0x08
	effSampleOffset     = 0x09
	effVolSlide         = 0x0A
	effPositionJump     = 0x0B
	effSetVolume        = 0x0C
	effPatternBreak     = 0x0D
	effExtended         = 0x0E
	effSetTempo         = 0x0F
	effGlobalVolume     = 0x10
	effGlobalVolSlide   = 0x11
	effKeyOff           = 0x14
	effSetEnvelopePos   = 0x15
	effPanningSlide     = 0x19
	effMultiRetrig      = 0x1B
	effTremor           = 0x1D
	effExtraFinePorta   = 0x21
)

// Extended-effect (Exy) sub-commands, keyed by the high nibble of the
// parameter byte.
const (
	extFinePortaUp    = 0x1
	extFinePortaDown  = 0x2
	extVibratoControl = 0x4
	extSetFinetune    = 0x5
	extPatternLoop    = 0x6
	extTremoloControl = 0x7
	extRetrigNote     = 0x9
	extFineVolSlideUp = 0xA
	extFineVolSlideDn = 0xB
	extNoteCut        = 0xC
	extNoteDelay      = 0xD
	extPatternDelay   = 0xE
)

// applyRowSlot decodes one channel's pattern slot on tick 0: note/
// instrument triggering, the volume column, and the effect column.
func (c *Context) applyRowSlot(ch *channelState, idx int, slot *patternSlot) {
	ch.activeEffect = effectNone
	ch.volColSlide = 0
	ch.volColPanSlide = 0
	ch.volColVibrato = false
	ch.rowTick = 0

	noteDelayTicks := 0
	if slot.EffectType == effExtended && slot.EffectParam>>4 == extNoteDelay {
		noteDelayTicks = int(slot.EffectParam & 0x0F)
	}

	if noteDelayTicks > 0 {
		ch.pending = pendingTrigger{
			active:      true,
			delayTicks:  noteDelayTicks,
			note:        int(slot.Note),
			instrument:  int(slot.Instrument),
			volume:      -1,
			effectType:  slot.EffectType,
			effectParam: slot.EffectParam,
		}
		if slot.Volume != 0 {
			ch.pending.volume = int(slot.Volume)
		}
		return
	}

	c.triggerSlot(ch, idx, slot.Note, slot.Instrument, slot.Volume, slot.EffectType)
	c.decodeEffectColumn(ch, idx, slot.EffectType, slot.EffectParam)
}

// triggerSlot applies a note/instrument/volume-column trigger, used both
// directly from applyRowSlot and from a note-delay's deferred firing.
//
// A note paired with a tone-portamento effect (3xx/5xx) only updates the
// slide's destination period instead of retriggering the sample, matching
// the teacher's MOD tone-portamento special case in player.go's
// sequenceTick.
func (c *Context) triggerSlot(ch *channelState, idx int, note, instrument, volByte, effType uint8) {
	if instrument != 0 {
		instIdx := int(instrument) - 1
		if instIdx >= 0 && instIdx < len(c.mod.Instruments) {
			ch.instrumentIdx = instIdx
			ch.instrument = &c.mod.Instruments[instIdx]
		}
	}

	tonePorta := effType == effTonePorta || effType == effTonePortaVolSlide

	switch {
	case note == KeyOffNote:
		ch.sustained = false
	case note >= 1 && note <= 96 && tonePorta && ch.sample != nil:
		c.setTonePortaTarget(ch, int(note))
	case note >= 1 && note <= 96:
		c.triggerNote(ch, idx, int(note))
	}

	c.applyVolumeColumnTrigger(ch, volByte)
}

// setTonePortaTarget re-targets an in-progress tone portamento at a new
// note without resetting the sample position, envelopes or period.
func (c *Context) setTonePortaTarget(ch *channelState, note int) {
	ch.note = note
	semitone := note - 1 + ch.sample.RelativeNote
	if semitone < 0 {
		semitone = 0
	}
	ch.portaTarget = clampPeriod(noteToPeriod(semitone, ch.sample.Finetune, c.mod.FrequencyType), c.mod.FrequencyType)
}

// triggerNote starts playback of a new note: resolves the sample from the
// instrument's note->sample map, resets sample position/envelopes/fadeout,
// and computes the note's base period.
func (c *Context) triggerNote(ch *channelState, idx int, note int) {
	if ch.instrument == nil {
		return
	}
	inst := ch.instrument

	sampleSlot := 0
	if note-1 >= 0 && note-1 < len(inst.NoteSampleMap) {
		sampleSlot = int(inst.NoteSampleMap[note-1])
	}
	if sampleSlot < 0 || sampleSlot >= inst.SampleCount {
		return
	}
	sampleIdx := inst.SampleBase + sampleSlot
	if sampleIdx < 0 || sampleIdx >= len(c.mod.Samples) {
		return
	}
	sample := &c.mod.Samples[sampleIdx]
	ch.sampleIdx = sampleIdx
	ch.sample = sample

	ch.note = note
	semitone := note - 1 + sample.RelativeNote
	if semitone < 0 {
		semitone = 0
	}
	period := noteToPeriod(semitone, sample.Finetune, c.mod.FrequencyType)
	ch.period = clampPeriod(period, c.mod.FrequencyType)
	ch.origPeriod = ch.period
	ch.portaTarget = ch.period

	// Carry the previous output into the ramp buffer so the new trigger
	// cross-fades instead of clicking, spec.md §4.5 step e.
	ch.rampPointsRemaining = RampingPoints

	ch.samplePosition = 0
	ch.pingPongFwd = true
	ch.sustained = true
	ch.envelopeFrame = 0
	ch.volumeEnvelopeValue = 1
	ch.panningEnvelopeValue = 0.5
	ch.fadeoutVolume = MaxFadeoutVolume
	ch.autovibratoTicks = 0
	ch.vibratoPhase = 0
	ch.tremoloPhase = 0
	ch.tremorOn = true
	ch.tremorTicks = 0

	ch.volume = sample.Volume
	ch.panning = sample.Panning
	ch.active = true

	c.samplesSinceTrigger[idx] = 0
}

// applyVolumeColumnTrigger handles the tick-0 (set) portion of the volume
// column; slide/vibrato/panning-slide sub-commands arm per-tick state that
// tickVolColumn advances on later ticks.
func (c *Context) applyVolumeColumnTrigger(ch *channelState, v uint8) {
	switch {
	case v == 0:
		return
	case v >= 0x10 && v <= 0x50:
		ch.volume = clampInt(int(v)-0x10, 0, MaxVolume)
	case v >= 0x60 && v <= 0x6F:
		ch.volColSlide = -int(v - 0x60)
	case v >= 0x70 && v <= 0x7F:
		ch.volColSlide = int(v - 0x70)
	case v >= 0x80 && v <= 0x8F:
		ch.volume = clampInt(ch.volume-int(v-0x80), 0, MaxVolume)
	case v >= 0x90 && v <= 0x9F:
		ch.volume = clampInt(ch.volume+int(v-0x90), 0, MaxVolume)
	case v >= 0xA0 && v <= 0xAF:
		ch.mem.vibratoSpeed = v - 0xA0
	case v >= 0xB0 && v <= 0xBF:
		ch.volColVibrato = true
		if d := v - 0xB0; d != 0 {
			ch.mem.vibratoDepth = d
		}
	case v >= 0xC0 && v <= 0xCF:
		ch.panning = clampInt(int(v-0xC0)<<4, 0, MaxPanning-1)
	case v >= 0xD0 && v <= 0xDF:
		ch.volColPanSlide = -int(v - 0xD0)
	case v >= 0xE0 && v <= 0xEF:
		ch.volColPanSlide = int(v - 0xE0)
	case v >= 0xF0 && v <= 0xFF:
		if p := v - 0xF0; p != 0 {
			ch.mem.tonePortaSpeed = p
		}
		ch.activeEffect = effectTonePorta
	}
}

// decodeEffectColumn resolves the effect-column command: applies tick-0-
// only (one-shot) effects immediately, and arms channelState.activeEffect
// plus the relevant effectMemory field for effects that continue every
// tick.
func (c *Context) decodeEffectColumn(ch *channelState, idx int, effType, param uint8) {
	switch effType {
	case effArpeggio:
		if param != 0 {
			ch.effectParam = param
			ch.activeEffect = effectArpeggio
		}
	case effPortaUp:
		if param != 0 {
			ch.mem.portaUp = param
		}
		ch.activeEffect = effectPortaUp
	case effPortaDown:
		if param != 0 {
			ch.mem.portaDown = param
		}
		ch.activeEffect = effectPortaDown
	case effTonePorta:
		if param != 0 {
			ch.mem.tonePortaSpeed = param
		}
		ch.activeEffect = effectTonePorta
	case effVibrato:
		c.armVibrato(ch, param)
		ch.activeEffect = effectVibrato
	case effTonePortaVolSlide:
		if param != 0 {
			ch.mem.volSlide = param
		}
		ch.activeEffect = effectTonePortaVolSlide
	case effVibratoVolSlide:
		c.armVibrato(ch, 0)
		if param != 0 {
			ch.mem.volSlide = param
		}
		ch.activeEffect = effectVibratoVolSlide
	case effTremolo:
		if param&0x0F != 0 {
			ch.mem.tremoloDepth = param & 0x0F
		}
		if param>>4 != 0 {
			ch.mem.tremoloSpeed = param >> 4
		}
		ch.activeEffect = effectTremolo
	case effSetPanning:
		ch.panning = clampInt(int(param)*MaxPanning/255, 0, MaxPanning-1)
	case effSampleOffset:
		if param != 0 {
			ch.mem.sampleOffset = param
		}
		if ch.sample != nil {
			off := int64(ch.mem.sampleOffset) * 256
			if off < int64(ch.sample.Length) {
				ch.samplePosition = off << MicrostepBits
			} else {
				ch.active = false
			}
		}
	case effVolSlide:
		if param != 0 {
			ch.mem.volSlide = param
		}
		ch.activeEffect = effectVolSlide
	case effPositionJump:
		c.jumpPending = true
		c.jumpOrder = int(param)
		c.jumpRow = 0
	case effSetVolume:
		ch.volume = clampInt(int(param), 0, MaxVolume)
	case effPatternBreak:
		c.breakPending = true
		c.breakRow = int(param>>4)*10 + int(param&0x0F)
	case effExtended:
		c.decodeExtended(ch, idx, param)
	case effSetTempo:
		if param < 0x20 {
			if param > 0 {
				c.tempo = int(param)
			}
		} else {
			c.bpm = int(param)
		}
	case effGlobalVolume:
		c.globalVolume = clampInt(int(param), 0, MaxVolume)
	case effGlobalVolSlide:
		if param != 0 {
			ch.mem.globalVolSlide = param
		}
		ch.activeEffect = effectGlobalVolSlide
	case effKeyOff:
		ch.sustained = false
	case effPanningSlide:
		if param != 0 {
			ch.mem.panningSlide = param
		}
		ch.activeEffect = effectPanningSlide
	case effMultiRetrig:
		if param != 0 {
			ch.mem.multiRetrig = param
		}
		ch.activeEffect = effectMultiRetrig
	case effTremor:
		if param != 0 {
			ch.mem.tremorParam = param
		}
		ch.activeEffect = effectTremor
	case effExtraFinePorta:
		amt := int(param & 0x0F)
		if param>>4 == 0x1 {
			ch.period = clampPeriod(ch.period-amt, c.mod.FrequencyType)
		} else if param>>4 == 0x2 {
			ch.period = clampPeriod(ch.period+amt, c.mod.FrequencyType)
		}
	}
}

func (c *Context) decodeExtended(ch *channelState, idx int, param uint8) {
	sub := param >> 4
	val := param & 0x0F

	switch sub {
	case extFinePortaUp:
		if val != 0 {
			ch.mem.finePortaUp = val
		}
		ch.period = clampPeriod(ch.period-int(ch.mem.finePortaUp)*4, c.mod.FrequencyType)
	case extFinePortaDown:
		if val != 0 {
			ch.mem.finePortaDown = val
		}
		ch.period = clampPeriod(ch.period+int(ch.mem.finePortaDown)*4, c.mod.FrequencyType)
	case extVibratoControl:
		ch.vibratoControl = VibratoWaveform(val & 0x7)
	case extSetFinetune:
		if ch.sample != nil {
			ch.sample.Finetune = int(val) - 8
		}
	case extPatternLoop:
		if val == 0 {
			ch.patternLoopOrigin = c.row
		} else {
			if ch.patternLoopCount == 0 {
				ch.patternLoopCount = int(val)
			} else {
				ch.patternLoopCount--
			}
			if ch.patternLoopCount > 0 {
				c.patternLoopPending = true
				c.patternLoopRow = ch.patternLoopOrigin
			}
		}
	case extTremoloControl:
		ch.tremoloControl = VibratoWaveform(val & 0x3)
	case extRetrigNote:
		if val != 0 {
			c.retriggerChannel(ch, idx)
		}
	case extFineVolSlideUp:
		if val != 0 {
			ch.mem.fineVolSlideUp = val
		}
		ch.volume = clampInt(ch.volume+int(ch.mem.fineVolSlideUp), 0, MaxVolume)
	case extFineVolSlideDn:
		if val != 0 {
			ch.mem.fineVolSlideDn = val
		}
		ch.volume = clampInt(ch.volume-int(ch.mem.fineVolSlideDn), 0, MaxVolume)
	case extNoteCut:
		if val == 0 {
			ch.volume = 0
		} else {
			ch.pending = pendingTrigger{active: true, delayTicks: int(val), note: 0, instrument: 0, volume: -2}
		}
	case extPatternDelay:
		c.delayRowsRemaining = int(val)
	}
}

// armVibrato resets phase on a new vibrato unless control bit 2 (no phase
// reset) is set, spec.md §4.4.
func (c *Context) armVibrato(ch *channelState, param uint8) {
	if param&0x0F != 0 {
		ch.mem.vibratoDepth = param & 0x0F
	}
	if param>>4 != 0 {
		ch.mem.vibratoSpeed = param >> 4
	}
	if ch.vibratoControl&0x4 == 0 {
		ch.vibratoPhase = 0
	}
}

func (c *Context) retriggerChannel(ch *channelState, idx int) {
	if ch.sample == nil {
		return
	}
	ch.samplePosition = 0
	ch.pingPongFwd = true
	c.samplesSinceTrigger[idx] = 0
}

// tickChannelEffect advances the single active effect-column family for
// one tick (ticks 1..tempo-1; tick 0 only decodes and arms, per
// scheduler.go).
func (c *Context) tickChannelEffect(ch *channelState, idx int) {
	ch.rowTick++
	switch ch.activeEffect {
	case effectArpeggio:
		c.applyArpeggio(ch)
	case effectPortaUp:
		ch.period = clampPeriod(ch.period-int(ch.mem.portaUp)*4, c.mod.FrequencyType)
	case effectPortaDown:
		ch.period = clampPeriod(ch.period+int(ch.mem.portaDown)*4, c.mod.FrequencyType)
	case effectTonePorta:
		c.applyTonePorta(ch)
	case effectTonePortaVolSlide:
		c.applyTonePorta(ch)
		c.applyVolSlide(ch, ch.mem.volSlide)
	case effectVibrato:
		c.applyVibrato(ch)
	case effectVibratoVolSlide:
		c.applyVibrato(ch)
		c.applyVolSlide(ch, ch.mem.volSlide)
	case effectTremolo:
		c.applyTremolo(ch)
	case effectVolSlide:
		c.applyVolSlide(ch, ch.mem.volSlide)
	case effectGlobalVolSlide:
		c.globalVolume = applySlideParam(c.globalVolume, ch.mem.globalVolSlide, 0, MaxVolume)
	case effectPanningSlide:
		ch.panning = applySlideParam(ch.panning, ch.mem.panningSlide, 0, MaxPanning-1)
	case effectTremor:
		c.applyTremor(ch)
	case effectMultiRetrig:
		c.applyMultiRetrig(ch)
	}

	c.tickPendingTrigger(ch, idx)
}

// tickVolColumn advances the volume column's independent per-tick slide/
// vibrato sub-commands.
func (c *Context) tickVolColumn(ch *channelState) {
	if ch.volColSlide != 0 {
		ch.volume = clampInt(ch.volume+ch.volColSlide, 0, MaxVolume)
	}
	if ch.volColPanSlide != 0 {
		ch.panning = clampInt(ch.panning+ch.volColPanSlide, 0, MaxPanning-1)
	}
	if ch.volColVibrato {
		c.applyVibrato(ch)
	}
}

// tickPendingTrigger fires a note-delay (EDx) or note-cut (ECx) once its
// countdown elapses.
func (c *Context) tickPendingTrigger(ch *channelState, idx int) {
	if !ch.pending.active {
		return
	}
	ch.pending.delayTicks--
	if ch.pending.delayTicks > 0 {
		return
	}
	ch.pending.active = false

	if ch.pending.volume == -2 { // note cut
		ch.volume = 0
		return
	}

	vol := uint8(0)
	if ch.pending.volume >= 0 {
		vol = uint8(ch.pending.volume)
	}
	c.triggerSlot(ch, idx, uint8(ch.pending.note), uint8(ch.pending.instrument), vol, ch.pending.effectType)
}

func applySlideParam(v int, param byte, lo, hi int) int {
	up, down := int(param>>4), int(param&0x0F)
	switch {
	case up > 0:
		v += up
	case down > 0:
		v -= down
	}
	return clampInt(v, lo, hi)
}

// applyVolSlide handles Axy/6xy/5xy shared volume-slide memory, plus the
// EAx/EBx fine variants (which are tick-0-only and handled directly in
// decodeExtended instead of here).
func (c *Context) applyVolSlide(ch *channelState, param byte) {
	ch.volume = applySlideParam(ch.volume, param, 0, MaxVolume)
}

func (c *Context) applyTonePorta(ch *channelState) {
	speed := int(ch.mem.tonePortaSpeed) * 4
	if ch.period < ch.portaTarget {
		ch.period += speed
		if ch.period > ch.portaTarget {
			ch.period = ch.portaTarget
		}
	} else if ch.period > ch.portaTarget {
		ch.period -= speed
		if ch.period < ch.portaTarget {
			ch.period = ch.portaTarget
		}
	}
}

func (c *Context) applyArpeggio(ch *channelState) {
	x := int(ch.effectParam >> 4)
	y := int(ch.effectParam & 0x0F)

	var semitoneOffset int
	switch ch.rowTick % 3 {
	case 1:
		semitoneOffset = x
	case 2:
		semitoneOffset = y
	}
	if ch.sample == nil {
		return
	}
	base := ch.note - 1 + ch.sample.RelativeNote + semitoneOffset
	if base < 0 {
		base = 0
	}
	ch.period = clampPeriod(noteToPeriod(base, ch.sample.Finetune, c.mod.FrequencyType), c.mod.FrequencyType)
}

func (c *Context) applyVibrato(ch *channelState) {
	delta := oscillatorValue(ch.vibratoControl&0x3, ch.vibratoPhase) * float64(ch.mem.vibratoDepth) * 4
	ch.period = clampPeriod(ch.origPeriod+int(delta), c.mod.FrequencyType)
	ch.vibratoPhase += int(ch.mem.vibratoSpeed)
}

func (c *Context) applyTremolo(ch *channelState) {
	delta := oscillatorValue(ch.tremoloControl, ch.tremoloPhase) * float64(ch.mem.tremoloDepth)
	ch.tremoloPhase += int(ch.mem.tremoloSpeed)
	v := clampInt(ch.volume+int(delta), 0, MaxVolume)
	ch.volume = v
}

func (c *Context) applyTremor(ch *channelState) {
	on := int(ch.mem.tremorParam>>4) + 1
	off := int(ch.mem.tremorParam&0x0F) + 1
	ch.tremorTicks++
	if ch.tremorOn {
		if ch.tremorTicks >= on {
			ch.tremorOn = false
			ch.tremorTicks = 0
		}
	} else {
		if ch.tremorTicks >= off {
			ch.tremorOn = true
			ch.tremorTicks = 0
		}
	}
}

func (c *Context) applyMultiRetrig(ch *channelState) {
	interval := int(ch.mem.multiRetrig & 0x0F)
	if interval == 0 {
		return
	}
	ch.tremorTicks++ // reused as a generic per-effect tick counter
	if ch.tremorTicks < interval {
		return
	}
	ch.tremorTicks = 0

	volMod := ch.mem.multiRetrig >> 4
	switch {
	case volMod >= 1 && volMod <= 5:
		ch.volume = clampInt(ch.volume-int(volMod), 0, MaxVolume)
	case volMod >= 6 && volMod <= 8:
		ch.volume = clampInt(ch.volume*2/3, 0, MaxVolume)
	case volMod == 9:
		ch.volume = clampInt(ch.volume/2, 0, MaxVolume)
	case volMod >= 0xA && volMod <= 0xE:
		ch.volume = clampInt(ch.volume+int(volMod-0xA+1), 0, MaxVolume)
	case volMod == 0xF:
		ch.volume = clampInt(ch.volume*2, 0, MaxVolume)
	}

	ch.samplePosition = 0
	ch.pingPongFwd = true
}

// oscillatorValue returns the vibrato/tremolo/autovibrato oscillator's
// value in [-1, 1] for the given waveform and 0..63 phase, spec.md §4.4's
// "64-step oscillator" (sine/ramp-down/square/random).
func oscillatorValue(kind VibratoWaveform, phase int) float64 {
	p := ((phase % 64) + 64) % 64
	switch kind {
	case WaveformRampDown:
		return 1 - float64(p)/32.0
	case WaveformSquare:
		if p < 32 {
			return 1
		}
		return -1
	case WaveformRandom:
		return pseudoRandomOsc(p)
	default: // WaveformSine
		return sineTable64[p]
	}
}

var sineTable64 = buildSineTable()

func buildSineTable() [64]float64 {
	var t [64]float64
	for i := range t {
		t[i] = sinApprox(float64(i) / 64.0)
	}
	return t
}

// sinApprox computes sin(2*pi*x) via a Bhaskara-I style rational
// approximation, avoiding a math.Sin import for a single lookup table built
// once at package init.
func sinApprox(x float64) float64 {
	x -= float64(int(x))
	if x < 0 {
		x++
	}
	deg := x * 360
	if deg > 180 {
		deg -= 360
	}
	rad := deg
	sign := 1.0
	if rad < 0 {
		rad = -rad
		sign = -1.0
	}
	num := 4 * rad * (180 - rad)
	den := 40500 - rad*(180-rad)
	return sign * num / den
}

func pseudoRandomOsc(seed int) float64 {
	x := uint32(seed*2654435761 + 1)
	x ^= x >> 13
	x *= 0x5bd1e995
	x ^= x >> 15
	return (float64(x%2001) - 1000) / 1000.0
}

// tickEnvelopes advances volume and panning envelope interpolation, spec.md
// §4.4's envelope-evaluation rule.
func (c *Context) tickEnvelopes(ch *channelState) {
	if ch.instrument == nil {
		return
	}
	ch.volumeEnvelopeValue = evalEnvelope(&ch.instrument.VolumeEnvelope, ch.envelopeFrame, ch.sustained, 64) / 64.0
	ch.panningEnvelopeValue = evalEnvelope(&ch.instrument.PanningEnvelope, ch.envelopeFrame, ch.sustained, 32) / 64.0

	env := &ch.instrument.VolumeEnvelope
	if env.Enabled && env.LoopEnabled && ch.envelopeFrame >= env.Points[env.LoopEndPoint].Frame {
		ch.envelopeFrame = env.Points[env.LoopStartPoint].Frame
	} else if env.Enabled && env.SustainEnabled && ch.sustained && ch.envelopeFrame >= env.Points[env.SustainPoint].Frame {
		// held at the sustain point
	} else {
		ch.envelopeFrame++
	}

	if !ch.sustained {
		ch.fadeoutVolume -= ch.instrument.FadeoutAmount
		if ch.fadeoutVolume < 0 {
			ch.fadeoutVolume = 0
		}
	}
}

// evalEnvelope linearly interpolates value between the two envelope points
// bracketing frame, honoring sustain-hold and loop-jump. Returns the
// default (fullDefault for volume, 32 for panning-style callers) if the
// envelope is disabled.
func evalEnvelope(e *Envelope, frame int, sustained bool, fullDefault int) float64 {
	if !e.Enabled || e.NumPoints == 0 {
		return float64(fullDefault)
	}

	f := frame
	if e.SustainEnabled && sustained && f > e.Points[e.SustainPoint].Frame {
		f = e.Points[e.SustainPoint].Frame
	}
	if e.LoopEnabled && f > e.Points[e.LoopEndPoint].Frame {
		f = e.Points[e.LoopEndPoint].Frame
	}

	if f <= e.Points[0].Frame {
		return float64(e.Points[0].Value)
	}
	last := e.Points[e.NumPoints-1]
	if f >= last.Frame {
		return float64(last.Value)
	}

	for i := 1; i < e.NumPoints; i++ {
		if f <= e.Points[i].Frame {
			p0, p1 := e.Points[i-1], e.Points[i]
			if p1.Frame == p0.Frame {
				return float64(p1.Value)
			}
			frac := float64(f-p0.Frame) / float64(p1.Frame-p0.Frame)
			return float64(p0.Value) + frac*float64(p1.Value-p0.Value)
		}
	}
	return float64(last.Value)
}

// tickAutovibrato applies the instrument-level vibrato unconditionally
// when its depth is nonzero, sweeping depth in over Vibrato.Sweep ticks.
func (c *Context) tickAutovibrato(ch *channelState) {
	if ch.instrument == nil || ch.instrument.Vibrato.Depth == 0 {
		return
	}
	vib := ch.instrument.Vibrato

	sweep := 1.0
	if vib.Sweep > 0 && ch.autovibratoTicks < vib.Sweep {
		sweep = float64(ch.autovibratoTicks) / float64(vib.Sweep)
	}

	phase := ch.autovibratoTicks * vib.Rate / 4
	delta := oscillatorValue(vib.Waveform, phase) * float64(vib.Depth) * sweep
	ch.period = clampPeriod(ch.period+int(delta), c.mod.FrequencyType)

	ch.autovibratoTicks++
}
