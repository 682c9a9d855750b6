package xmplayer

import "testing"

// TestArpeggioCyclesThroughBaseMajorMinorPerTick checks spec.md §4.4's
// arpeggio cycle: tick%3 == 0 is the base note, 1 is +x semitones, 2 is +y.
func TestArpeggioCyclesThroughBaseMajorMinorPerTick(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 047"}, // x=4, y=7 semitones
	})
	ch := &c.channels[0]
	advanceTick(c) // tick 0: trigger note, arm arpeggio

	basePeriod := ch.period
	noteToPeriodBase := clampPeriod(noteToPeriod(ch.note-1+ch.sample.RelativeNote, ch.sample.Finetune, c.mod.FrequencyType), c.mod.FrequencyType)
	if basePeriod != noteToPeriodBase {
		t.Fatalf("base trigger period = %d, want %d", basePeriod, noteToPeriodBase)
	}

	advanceTick(c) // tick 1: rowTick=1 -> +x semitones
	wantX := clampPeriod(noteToPeriod(ch.note-1+ch.sample.RelativeNote+4, ch.sample.Finetune, c.mod.FrequencyType), c.mod.FrequencyType)
	if ch.period != wantX {
		t.Errorf("tick 1 period = %d, want %d (+4 semitones)", ch.period, wantX)
	}

	advanceTick(c) // tick 2: rowTick=2 -> +y semitones
	wantY := clampPeriod(noteToPeriod(ch.note-1+ch.sample.RelativeNote+7, ch.sample.Finetune, c.mod.FrequencyType), c.mod.FrequencyType)
	if ch.period != wantY {
		t.Errorf("tick 2 period = %d, want %d (+7 semitones)", ch.period, wantY)
	}

	advanceTick(c) // tick 3: rowTick=3, 3%3==0 -> back to base
	if ch.period != basePeriod {
		t.Errorf("tick 3 period = %d, want base %d", ch.period, basePeriod)
	}
}

func TestPortaUpLowersPeriodEachTick(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 110"}, // portamento up, speed 0x10
	})
	ch := &c.channels[0]
	advanceTick(c)
	before := ch.period
	advanceTick(c)
	want := clampPeriod(before-0x10*4, c.mod.FrequencyType)
	if ch.period != want {
		t.Errorf("period after porta up = %d, want %d", ch.period, want)
	}
}

func TestPortaDownRaisesPeriodEachTick(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 210"}, // portamento down, speed 0x10
	})
	ch := &c.channels[0]
	advanceTick(c)
	before := ch.period
	advanceTick(c)
	want := clampPeriod(before+0x10*4, c.mod.FrequencyType)
	if ch.period != want {
		t.Errorf("period after porta down = %d, want %d", ch.period, want)
	}
}

// TestTonePortaSlidesTowardTargetAndStops checks that tone portamento moves
// the period toward portaTarget and clamps there without overshoot. It also
// exercises the rule (grounded on the teacher's MOD tone-portamento special
// case) that a note sharing a row with effect 3xx/5xx only re-targets the
// slide instead of retriggering the sample: the period must stay at the old
// note's value the instant the new note+3xx row is decoded.
func TestTonePortaSlidesTowardTargetAndStops(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 ..."},
		{"D-4 01 80 3FF"}, // tone porta toward D-4, fast speed: converges in 1 tick
	})
	tempo := c.tempo
	advanceRow(c)  // lands on row 1; its tick 0 has not run yet
	advanceTick(c) // processes row 1's tick 0: arms the target, must not retrigger
	ch := &c.channels[0]

	startPeriod := ch.period
	target := ch.portaTarget
	if target == startPeriod {
		t.Fatal("test setup: porta target should differ from the starting period")
	}
	// Remaining ticks of this row, stopping just short of the wrap back to
	// row 0 (which would retrigger C-4 and invalidate the comparison).
	for i := 1; i < tempo; i++ {
		advanceTick(c)
	}
	if ch.period != target {
		t.Fatalf("tone porta did not reach its target: got %d, want %d", ch.period, target)
	}
}

func TestVolumeSlideUpAndDown(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 40 A20"}, // volume slide up, rate 2
		{"... .. .. A02"}, // volume slide down, rate 2
	})
	ch := &c.channels[0]
	advanceTick(c)
	before := ch.volume
	advanceTick(c)
	if want := clampInt(before+2, 0, MaxVolume); ch.volume != want {
		t.Errorf("volume after slide up = %d, want %d", ch.volume, want)
	}

	advanceRow(c)
	advanceTick(c)
	before = ch.volume
	advanceTick(c)
	if want := clampInt(before-2, 0, MaxVolume); ch.volume != want {
		t.Errorf("volume after slide down = %d, want %d", ch.volume, want)
	}
}

func TestFineVolumeSlideAppliesOnceAtTickZero(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		// Volume column byte 40 sets volume to 40-0x10=24 at trigger, then
		// EA2 (fine volume slide up, amount 2) applies once on tick 0.
		{"C-4 01 40 EA2"},
	})
	ch := &c.channels[0]
	advanceTick(c) // tick 0: trigger sets volume 24, then the fine slide adds 2
	afterTick0 := ch.volume
	if afterTick0 != 26 {
		t.Fatalf("volume after tick 0 = %d, want 26 (24 + one fine slide of 2)", afterTick0)
	}
	advanceTick(c) // tick 1 must not slide again
	if ch.volume != afterTick0 {
		t.Errorf("fine volume slide re-applied on tick 1: %d -> %d", afterTick0, ch.volume)
	}
}

func TestSetVolumeEffectClampsToMax(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 .. CFF"}, // set volume 0xFF, out of range
	})
	advanceTick(c)
	if c.channels[0].volume != MaxVolume {
		t.Errorf("volume = %d, want clamped to %d", c.channels[0].volume, MaxVolume)
	}
}

func TestGlobalVolumeEffectSetsContextVolume(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 .. G20"}, // set global volume to 0x20
	})
	advanceTick(c)
	if c.globalVolume != 0x20 {
		t.Errorf("globalVolume = %d, want 32", c.globalVolume)
	}
}

func TestSetTempoBelow0x20SetsTempoAboveSetsBPM(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 .. F06"}, // F06: tempo = 6 ticks/row
	})
	advanceTick(c)
	if c.tempo != 6 {
		t.Errorf("tempo = %d, want 6", c.tempo)
	}

	c2 := newTestContext(1, 44100, [][]string{
		{"C-4 01 .. F90"}, // F90 = 0x90 = 144 >= 0x20 -> sets BPM
	})
	advanceTick(c2)
	if c2.bpm != 0x90 {
		t.Errorf("bpm = %d, want %d", c2.bpm, 0x90)
	}
}

func TestTremorTogglesVolumeOnOffCycle(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 T10"}, // tremor: 2 ticks on (1+1), 1 tick off (0+1)
	})
	ch := &c.channels[0]
	advanceTick(c) // tick 0: trigger + arm
	if !ch.tremorOn {
		t.Fatal("tremor should start 'on'")
	}
	advanceTick(c) // tick 1: tremorTicks=1 < on(2), stays on
	if !ch.tremorOn {
		t.Error("tremor should still be on after 1 tick")
	}
	advanceTick(c) // tick 2: tremorTicks=2 >= on(2) -> flips off
	if ch.tremorOn {
		t.Error("tremor should flip off after reaching the on-duration")
	}
}

func TestMultiRetrigResetsSamplePosition(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 R03"}, // retrigger every 3 ticks, no volume modifier
	})
	ch := &c.channels[0]
	advanceTick(c)
	renderFrames(c, 50) // advance the sample position away from 0

	if ch.samplePosition == 0 {
		t.Fatal("test setup: sample position should have advanced before retrigger")
	}
	advanceTick(c)
	advanceTick(c)
	advanceTick(c) // rowTick reaches the retrigger interval
	if ch.samplePosition != 0 {
		t.Errorf("samplePosition = %d, want 0 after multi-retrig fires", ch.samplePosition)
	}
}

func TestNoteCutSilencesAfterDelay(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 EC2"}, // note cut after 2 ticks
	})
	ch := &c.channels[0]
	advanceTick(c)
	if ch.volume == 0 {
		t.Fatal("test setup: volume should be nonzero right after trigger")
	}
	advanceTick(c)
	if ch.volume == 0 {
		t.Error("note cut fired too early")
	}
	advanceTick(c)
	if ch.volume != 0 {
		t.Errorf("volume = %d, want 0 after note cut fires", ch.volume)
	}
}

func TestNoteDelayPostponesTrigger(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 ED3"}, // delay the trigger by 3 ticks
	})
	ch := &c.channels[0]
	advanceTick(c) // tick 0: note delay armed, channel not yet active
	if ch.active {
		t.Fatal("note should not be active before its delay elapses")
	}
	advanceTick(c)
	advanceTick(c)
	if ch.active {
		t.Fatal("note should still be delayed")
	}
	advanceTick(c) // third post-trigger tick: delay elapses
	if !ch.active {
		t.Error("note should be active once the delay elapses")
	}
}

func TestExtendedFinePortaAppliesOnceAtTickZero(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 E12"}, // fine porta up, amount 2
	})
	ch := &c.channels[0]
	advanceTick(c)
	basePeriod := clampPeriod(noteToPeriod(ch.note-1+ch.sample.RelativeNote, ch.sample.Finetune, c.mod.FrequencyType), c.mod.FrequencyType)
	want := clampPeriod(basePeriod-2*4, c.mod.FrequencyType)
	if ch.period != want {
		t.Fatalf("period after tick 0 = %d, want %d (base %d minus one fine porta of 8)", ch.period, want, basePeriod)
	}
	advanceTick(c) // must not slide again on tick 1
	if ch.period != want {
		t.Errorf("fine porta re-applied on tick 1: %d -> %d", want, ch.period)
	}
}

func TestSetPanningEffect(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 .. 8FF"}, // set panning to 0xFF (full right)
	})
	advanceTick(c)
	want := clampInt(0xFF*MaxPanning/255, 0, MaxPanning-1)
	if c.channels[0].panning != want {
		t.Errorf("panning = %d, want %d", c.channels[0].panning, want)
	}
}

func TestVolumeColumnSetVolume(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{
		{"C-4 01 80 ..."}, // volume column byte 0x50 -> max volume
	})
	advanceTick(c)
	if c.channels[0].volume != MaxVolume {
		t.Errorf("volume = %d, want %d", c.channels[0].volume, MaxVolume)
	}
}
