package xmplayer

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	clone "github.com/huandu/go-clone/generic"
)

// Test pattern cells are space-separated "NOTE INST VOL EFFECT" tokens,
// generalizing the teacher's convertTestPatternData/decodeS3MNote
// (helpers_test.go) from S3M columns to XM's note/instrument/volume/effect
// layout:
//
//	"C-4 01 80 A0F" - play C-4 with instrument 1, volume-column byte 80
//	                  (0x50, the top of the "set volume" range = max
//	                  volume 64), effect A0F
//	"... .. .. ..." - empty cell, or "" for the same
//	"off ..  .. ..." - key off
//
// Instrument and volume are the raw pattern-slot bytes, written in decimal;
// effect is one letter (0-9, A-Z for effect types 10-35) plus a 2-digit hex
// parameter, matching the on-disk effect byte FT2 uses. A note is two
// letter-chars (C-, C#, D-, ... B-) plus an octave digit 0..9;
// octave*12+index+1 gives the 1-based note number the loader itself
// produces (effects.go's triggerNote does semitone = note-1).
var testNoteNames = []string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

const testWaveformLen = 4096

// testModuleTemplate is the shared fixture every test clones from, grounded
// on the teacher's package-level testSong (helpers_test.go): one instrument
// over a flat (DC) waveform, so the mixed PCM output depends only on which
// samples are active/gain/pan, never on phase, per testConstantWaveform's
// doc comment below. Cloning a shared template instead of rebuilding the
// instrument/sample/waveform fixture per call is exactly the teacher's own
// reason for reaching for go-clone: test cases must not alias (and so
// mutate) each other's copy.
var testModuleTemplate = buildTestModuleTemplate()

func buildTestModuleTemplate() Module {
	mod := Module{
		FrequencyType: FrequencyLinear,
		DefaultTempo:  6,
		DefaultBPM:    125,
	}

	mod.Waveform = make([]float32, testWaveformLen)
	for i := range mod.Waveform {
		mod.Waveform[i] = testConstantWaveform
	}

	mod.Samples = []Sample{{
		Name:       "testsample",
		Volume:     MaxVolume,
		Panning:    MaxPanning / 2,
		LoopMode:   LoopForward,
		Length:     testWaveformLen,
		LoopStart:  0,
		LoopLength: testWaveformLen,
	}}
	mod.Instruments = []Instrument{{
		Name:        "testinstrument",
		SampleBase:  0,
		SampleCount: 1,
	}}

	return mod
}

// buildTestModule clones testModuleTemplate (go-clone/generic, matching the
// teacher's newPlayerWithTestPattern/newPlayerWithMODTestPattern) so each
// test gets its own independent Module, then fills in the per-test pattern
// data and channel count.
func buildTestModule(channels int, patterns ...[][]string) *Module {
	mod := clone.Clone(testModuleTemplate)
	mod.Channels = channels
	mod.OrderLength = len(patterns)
	for i := range patterns {
		mod.Order[i] = uint8(i)
	}

	for _, rows := range patterns {
		pat := Pattern{NumRows: len(rows), SlotOffset: len(mod.Slots)}
		slots := make([]patternSlot, len(rows)*channels)
		for r, row := range rows {
			cells := row
			for c := 0; c < channels; c++ {
				cell := ""
				if c < len(cells) {
					cell = cells[c]
				}
				slots[r*channels+c] = parseTestCell(cell)
			}
		}
		mod.Patterns = append(mod.Patterns, pat)
		mod.Slots = append(mod.Slots, slots...)
	}

	return &mod
}

// testConstantWaveform is a nonzero constant value: mixed output amplitude
// depends only on gain/panning/active-state, never on sample phase, which
// lets scenario tests compare PCM across different trigger timings (e.g.
// arpeggio's per-tick retune vs explicit per-row note changes) without
// needing bit-exact position alignment.
const testConstantWaveform = 0.5

// newTestContext builds a ready-to-tick Context over the given patterns.
func newTestContext(channels, sampleRate int, patterns ...[][]string) *Context {
	mod := buildTestModule(channels, patterns...)
	return newContext(mod, sampleRate)
}

func parseTestCell(cell string) patternSlot {
	fields := []string{}
	for _, f := range strings.Fields(cell) {
		fields = append(fields, f)
	}
	var slot patternSlot
	if len(fields) > 0 {
		slot.Note = decodeTestNote(fields[0])
	}
	if len(fields) > 1 {
		slot.Instrument = decodeTestByte(fields[1])
	}
	if len(fields) > 2 {
		slot.Volume = decodeTestByte(fields[2])
	}
	if len(fields) > 3 {
		slot.EffectType, slot.EffectParam = decodeTestEffect(fields[3])
	}
	return slot
}

func decodeTestNote(tok string) uint8 {
	switch tok {
	case "", "...":
		return 0
	case "off":
		return KeyOffNote
	}
	if len(tok) != 3 {
		panic(fmt.Sprintf("bad test note %q", tok))
	}
	name := tok[0:2]
	idx := -1
	for i, n := range testNoteNames {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("bad test note name %q", tok))
	}
	octave := int(tok[2] - '0')
	return uint8(octave*12 + idx + 1)
}

func decodeTestByte(tok string) uint8 {
	if tok == "" || tok == ".." {
		return 0
	}
	v, err := strconv.ParseUint(tok, 10, 8)
	if err != nil {
		panic(err)
	}
	return uint8(v)
}

func decodeTestEffect(tok string) (uint8, uint8) {
	if tok == "" || tok == "..." {
		return 0, 0
	}
	if len(tok) != 3 {
		panic(fmt.Sprintf("bad test effect %q", tok))
	}
	letter := tok[0]
	var effType uint8
	switch {
	case letter >= '0' && letter <= '9':
		effType = letter - '0'
	case letter >= 'A' && letter <= 'Z':
		effType = 10 + (letter - 'A')
	default:
		panic(fmt.Sprintf("bad test effect letter %q", tok))
	}
	param, err := strconv.ParseUint(tok[1:3], 16, 8)
	if err != nil {
		panic(err)
	}
	return effType, uint8(param)
}

// advanceRow runs onTick until the scheduler has moved past the current row
// (including pattern-delay repeats), even when a jump, wrap or break lands
// on the same order and row, or until playback halts. On return the next
// row's tick 0 has not yet been processed.
func advanceRow(c *Context) {
	for {
		c.onTick()
		if c.halted || (c.tick == 0 && c.delayRowsRemaining == 0) {
			return
		}
	}
}

// advanceTick runs exactly one scheduler tick.
func advanceTick(c *Context) { c.onTick() }

// renderFrames pulls n interleaved stereo frames, for tests that compare
// rendered PCM rather than inspecting channel state directly.
func renderFrames(c *Context, n int) []float32 {
	out := make([]float32, n*2)
	c.GenerateSamples(out, n)
	return out
}

func approxEqualBuffers(t *testing.T, a, b []float32, eps float32, what string) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("%s: length mismatch %d vs %d", what, len(a), len(b))
	}
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > eps {
			t.Fatalf("%s: sample %d differs: %v vs %v", what, i, a[i], b[i])
		}
	}
}
