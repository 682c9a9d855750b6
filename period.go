package xmplayer

import "math"

// This file holds the fixed-point/frequency arithmetic helpers: note/
// finetune -> period, period -> frequency, and frequency -> fixed-point
// sample step. Grounded on the teacher's periodTable/fineTuning approach in
// player.go, generalized from Amiga-only MOD periods to XM's dual linear/
// Amiga frequency model (spec.md §4.5).

// amigaPeriodTable is the classic one-octave Amiga period table (period at
// octave 0), indexed by semitone 0..11.
var amigaPeriodTable = [12]int{
	1712, 1616, 1524, 1440, 1356, 1280, 1208, 1140, 1076, 1016, 960, 907,
}

// clampPeriod enforces the engine period limits, spec.md §4.4 "Period
// clamping". A period outside these bounds silences the channel but does
// not stop scheduler state from advancing.
func clampPeriod(period int, freqType FrequencyType) int {
	lo, hi := LinearPeriodMin, LinearPeriodMax
	if freqType == FrequencyAmiga {
		lo, hi = AmigaPeriodMin, AmigaPeriodMax
	}
	if period < lo {
		return lo
	}
	if period > hi {
		return hi
	}
	return period
}

func periodInRange(period int, freqType FrequencyType) bool {
	lo, hi := LinearPeriodMin, LinearPeriodMax
	if freqType == FrequencyAmiga {
		lo, hi = AmigaPeriodMin, AmigaPeriodMax
	}
	return period >= lo && period <= hi
}

// noteToPeriod converts a 0-based semitone (relative to C-0) plus a
// -16..15 finetune into a period, in the units spec.md §3 documents: linear
// mode is 1/64-semitone units, Amiga mode is classic Amiga hardware period.
func noteToPeriod(semitone, finetune int, freqType FrequencyType) int {
	if freqType == FrequencyLinear {
		return linearPeriod(semitone, finetune)
	}
	return amigaPeriod(semitone, finetune)
}

func linearPeriod(semitone, finetune int) int {
	// 64 period units per semitone, finetune scaled by 4 so its full -16..15
	// range spans -64..+60 units: one semitone down, just under one up.
	return LinearPeriodMax - semitone*64 - finetune*4
}

func amigaPeriod(semitone, finetune int) int {
	octave := semitone / 12
	idx := semitone % 12

	p0 := float64(amigaPeriodTable[idx])
	var p1 float64
	if idx == 11 {
		p1 = float64(amigaPeriodTable[0]) / 2
	} else {
		p1 = float64(amigaPeriodTable[idx+1])
	}

	// finetune > 0 raises pitch (lowers period) towards the next semitone.
	frac := float64(finetune) / 16.0
	base := p0 + (p1-p0)*frac
	period := base / math.Exp2(float64(octave))

	return int(math.Round(period))
}

// periodToFrequency converts a channel period to a playback frequency in
// Hz, spec.md §4.5.
func periodToFrequency(period int, freqType FrequencyType) float64 {
	if period <= 0 {
		return 0
	}
	if freqType == FrequencyLinear {
		// 8363 Hz at C-4 (semitone 48, period LinearPeriodMax-48*64).
		return 8363.0 * math.Exp2(float64(LinearPeriodMax-48*64-period)/768.0)
	}
	// PAL Amiga clock, spec.md §4.5.
	return 7093789.2 / (float64(period) * 2)
}

// frequencyToStep converts a playback frequency into the fixed-point
// microstep increment added to a channel's sample position each output
// frame, spec.md §4.5 "Output step = sample_rate_ratio × 2^MICROSTEP_BITS".
func frequencyToStep(freq float64, sampleRate int) int64 {
	if freq <= 0 || sampleRate <= 0 {
		return 0
	}
	return int64(freq / float64(sampleRate) * float64(int64(1)<<MicrostepBits))
}

// tempoDurationSamples returns how many output frames one tick lasts at the
// given BPM, in TickSubsamples-scaled fixed point, spec.md §4.5 step 1 /
// GLOSSARY "Tick".
func tempoDurationSamples(bpm, sampleRate int) int64 {
	// A tick is 2.5/bpm seconds.
	seconds := 2.5 / float64(bpm)
	return int64(seconds*float64(sampleRate)*TickSubsamples + 0.5)
}
