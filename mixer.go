package xmplayer

// This file is the sample generator, spec.md §4.5. Grounded on the
// teacher's mixer.go/mixer_scalar.go mono/stereo scalar mixing routines
// and the player.go split between per-tick bookkeeping (scheduler.go
// here) and per-frame mixing (mixFrame here), generalized to XM's
// envelope/fadeout/autovibrato/ramping pipeline that MOD/S3M samples in
// the teacher never needed.

// mixFrame produces one interleaved stereo output frame: advance every
// channel's sample position, fetch+interpolate, scale by volume/panning/
// envelope/fadeout/ramping, sum and clip.
func (c *Context) mixFrame() (float32, float32) {
	var sumL, sumR float64

	for i := range c.channels {
		ch := &c.channels[i]
		l, r := c.mixChannel(ch, i)
		sumL += l
		sumR += r
	}

	sumL *= Amplification
	sumR *= Amplification
	return float32(clampFloat(sumL, -1, 1)), float32(clampFloat(sumR, -1, 1))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mixChannel implements spec.md §4.5 step 2 for a single channel.
func (c *Context) mixChannel(ch *channelState, idx int) (float64, float64) {
	if ch.muted || !ch.active || ch.sample == nil || (ch.instrumentIdx >= 0 && ch.instrumentIdx < MaxInstruments && c.instrumentMuted[ch.instrumentIdx]) {
		c.pushRamp(ch, 0, 0)
		return 0, 0
	}

	sample := ch.sample
	if sample.Length == 0 || !periodInRange(ch.period, c.mod.FrequencyType) {
		c.pushRamp(ch, 0, 0)
		return 0, 0
	}

	ch.step = frequencyToStep(periodToFrequency(ch.period, c.mod.FrequencyType), c.sampleRate)

	raw := fetchInterpolated(c.mod.Waveform, sample, ch.samplePosition)
	if !c.advanceSamplePosition(ch, sample) {
		raw = 0
	}

	gain := c.channelGain(ch)
	panL, panR := channelPan(ch)

	targetL := raw * gain * panL
	targetR := raw * gain * panR

	outL, outR := c.applyRamping(ch, targetL, targetR)
	c.pushRamp(ch, outL, outR)

	return outL, outR
}

// channelGain combines channel volume, volume envelope, fadeout and
// global volume, spec.md §4.5 step 2d, and is zero during a tremor off
// phase. Note: the sample's own base volume is folded into channel volume
// at trigger time (triggerNote), so it is not reapplied here.
func (c *Context) channelGain(ch *channelState) float64 {
	if ch.activeEffect == effectTremor && !ch.tremorOn {
		return 0
	}
	chVol := float64(ch.volume) / float64(MaxVolume)
	fadeout := float64(ch.fadeoutVolume) / float64(MaxFadeoutVolume)
	global := float64(c.globalVolume) / float64(MaxVolume)
	envelope := ch.volumeEnvelopeValue
	if envelope < 0 {
		envelope = 0
	}
	return chVol * envelope * fadeout * global
}

// channelPan resolves per-channel linear left/right gains (1-pan, pan) from
// the panning field and panning envelope.
func channelPan(ch *channelState) (float64, float64) {
	pan := float64(ch.panning) / float64(MaxPanning)
	pan += ch.panningEnvelopeValue - 0.5
	pan = clampFloat(pan, 0, 1)
	return 1 - pan, pan
}

// applyRamping implements spec.md §4.5 step e: a short cross-fade from the
// previous sample's tail after a trigger, and a per-frame approach to the
// target level at a bounded rate to suppress clicks from any change.
func (c *Context) applyRamping(ch *channelState, targetL, targetR float64) (float64, float64) {
	const maxStep = 1.0 / 128.0

	if ch.rampVolL == 0 && ch.rampVolR == 0 && ch.targetVolL == 0 && ch.targetVolR == 0 {
		ch.rampVolL, ch.rampVolR = targetL, targetR
	}
	ch.targetVolL, ch.targetVolR = targetL, targetR

	ch.rampVolL = approach(ch.rampVolL, targetL, maxStep)
	ch.rampVolR = approach(ch.rampVolR, targetR, maxStep)

	outL, outR := ch.rampVolL, ch.rampVolR

	if ch.rampPointsRemaining > 0 {
		k := RampingPoints - ch.rampPointsRemaining
		blend := float64(ch.rampPointsRemaining) / float64(RampingPoints)
		prevL, prevR := float64(ch.endOfPreviousSample[k][0]), float64(ch.endOfPreviousSample[k][1])
		outL = outL*(1-blend) + prevL*blend
		outR = outR*(1-blend) + prevR*blend
		ch.rampPointsRemaining--
	}

	return outL, outR
}

func approach(v, target, maxStep float64) float64 {
	if v < target {
		v += maxStep
		if v > target {
			v = target
		}
	} else if v > target {
		v -= maxStep
		if v < target {
			v = target
		}
	}
	return v
}

// pushRamp records this frame's output into the channel's ring buffer so a
// future re-trigger can cross-fade from it.
func (c *Context) pushRamp(ch *channelState, l, r float64) {
	copy(ch.endOfPreviousSample[:RampingPoints-1], ch.endOfPreviousSample[1:])
	ch.endOfPreviousSample[RampingPoints-1] = [2]float32{float32(l), float32(r)}
}

// fetchInterpolated linearly interpolates between the two waveform frames
// bracketing a fixed-point sample position, spec.md §4.5 step 2c.
func fetchInterpolated(waveform []float32, s *Sample, pos int64) float64 {
	idx := int(pos >> MicrostepBits)
	frac := float64(pos&((1<<MicrostepBits)-1)) / float64(int64(1)<<MicrostepBits)

	base := s.DataOffset
	if idx < 0 || idx >= s.Length {
		return 0
	}
	s0 := float64(waveform[base+idx])

	next := idx + 1
	var s1 float64
	switch {
	case next < s.Length:
		s1 = float64(waveform[base+next])
	case s.LoopMode == LoopForward && s.LoopLength > 0:
		s1 = float64(waveform[base+s.LoopStart])
	case s.LoopMode == LoopPingPong:
		s1 = s0
	default:
		s1 = 0
	}

	return s0 + (s1-s0)*frac
}

// advanceSamplePosition steps a channel's fixed-point position by step and
// applies the sample's loop mode, spec.md §4.5 step 2b. Returns false if
// the channel has run off a non-looping sample and should fall silent.
func (c *Context) advanceSamplePosition(ch *channelState, s *Sample) bool {
	pos := ch.samplePosition + ch.step
	lengthFixed := int64(s.Length) << MicrostepBits

	switch s.LoopMode {
	case LoopNone:
		if pos >= lengthFixed {
			ch.active = false
			return false
		}
		ch.samplePosition = pos

	case LoopForward:
		loopStartFixed := int64(s.LoopStart) << MicrostepBits
		loopLenFixed := int64(s.LoopLength) << MicrostepBits
		if loopLenFixed <= 0 {
			if pos >= lengthFixed {
				ch.active = false
				return false
			}
			ch.samplePosition = pos
			break
		}
		for pos >= loopStartFixed+loopLenFixed {
			pos -= loopLenFixed
		}
		ch.samplePosition = pos

	case LoopPingPong:
		loopLenFixed := int64(s.LoopLength) << MicrostepBits
		if loopLenFixed <= 0 {
			if pos >= lengthFixed {
				ch.active = false
				return false
			}
			ch.samplePosition = pos
			break
		}
		lo := lengthFixed - loopLenFixed
		hi := lengthFixed
		for i := 0; i < 8; i++ {
			if ch.pingPongFwd {
				if pos < hi {
					break
				}
				pos = hi - (pos - hi)
				ch.pingPongFwd = false
			} else {
				if pos >= lo {
					break
				}
				pos = lo + (lo - pos)
				ch.pingPongFwd = true
			}
		}
		ch.samplePosition = pos
	}

	return true
}
