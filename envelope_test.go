package xmplayer

import "testing"

func testEnvelope() Envelope {
	e := Envelope{Enabled: true, NumPoints: 4}
	e.Points[0] = EnvelopePoint{Frame: 0, Value: 0}
	e.Points[1] = EnvelopePoint{Frame: 10, Value: 64}
	e.Points[2] = EnvelopePoint{Frame: 20, Value: 32}
	e.Points[3] = EnvelopePoint{Frame: 30, Value: 0}
	return e
}

func TestEvalEnvelopeDisabledReturnsDefault(t *testing.T) {
	e := Envelope{}
	if v := evalEnvelope(&e, 5, true, 64); v != 64 {
		t.Errorf("disabled envelope: got %v, want 64", v)
	}
}

func TestEvalEnvelopeBeforeFirstPoint(t *testing.T) {
	e := testEnvelope()
	if v := evalEnvelope(&e, -5, false, 64); v != 0 {
		t.Errorf("got %v, want 0", v)
	}
}

func TestEvalEnvelopeAfterLastPoint(t *testing.T) {
	e := testEnvelope()
	if v := evalEnvelope(&e, 1000, false, 64); v != 0 {
		t.Errorf("got %v, want 0", v)
	}
}

func TestEvalEnvelopeLinearInterpolation(t *testing.T) {
	e := testEnvelope()
	// Halfway between frame 0 (value 0) and frame 10 (value 64).
	if v := evalEnvelope(&e, 5, false, 64); v != 32 {
		t.Errorf("got %v, want 32", v)
	}
}

func TestEvalEnvelopeExactPoint(t *testing.T) {
	e := testEnvelope()
	if v := evalEnvelope(&e, 20, false, 64); v != 32 {
		t.Errorf("got %v, want 32", v)
	}
}

func TestEvalEnvelopeSustainHold(t *testing.T) {
	e := testEnvelope()
	e.SustainEnabled = true
	e.SustainPoint = 1 // frame 10, value 64
	// Sustained notes freeze at the sustain frame even if envelopeFrame has
	// advanced further, per spec.md §4.4.
	if v := evalEnvelope(&e, 25, true, 64); v != 64 {
		t.Errorf("sustained at frame 25: got %v, want 64 (held at frame 10)", v)
	}
	// Once key-off clears sustain, the envelope continues past the hold.
	if v := evalEnvelope(&e, 25, false, 64); v != 16 {
		t.Errorf("released at frame 25: got %v, want 16", v)
	}
}

func TestEvalEnvelopeLoop(t *testing.T) {
	e := testEnvelope()
	e.LoopEnabled = true
	e.LoopStartPoint = 1 // frame 10
	e.LoopEndPoint = 2    // frame 20
	// Frame past the loop end point is clamped back to the loop end's value.
	if v := evalEnvelope(&e, 29, false, 64); v != 32 {
		t.Errorf("looped at frame 29: got %v, want 32 (clamped to loop end)", v)
	}
}

// TestTickEnvelopesAdvancesFrameMonotonically checks spec.md §8's invariant
// "envelope frame advances monotonically except at loop jumps".
func TestTickEnvelopesAdvancesFrameMonotonically(t *testing.T) {
	c := newTestContext(1, 44100, [][]string{{"C-4 01 40 ..."}})
	ch := &c.channels[0]
	ch.instrument = &c.mod.Instruments[0]
	ch.sustained = true

	prev := ch.envelopeFrame
	for i := 0; i < 5; i++ {
		c.tickEnvelopes(ch)
		if ch.envelopeFrame < prev {
			t.Fatalf("envelope frame regressed: %d -> %d", prev, ch.envelopeFrame)
		}
		prev = ch.envelopeFrame
	}
}
