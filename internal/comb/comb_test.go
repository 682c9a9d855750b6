package comb

import "testing"

func TestPassThroughCopiesAudioUnmodified(t *testing.T) {
	p := NewPassThrough(16)

	in := []float32{0.1, -0.2, 0.3, -0.4}
	if n := p.InputSamples(in); n != 2 {
		t.Fatalf("InputSamples returned %d frames, want 2", n)
	}

	out := make([]float32, 4)
	if n := p.GetAudio(out); n != 2 {
		t.Fatalf("GetAudio returned %d frames, want 2", n)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestPassThroughBoundedCapacity(t *testing.T) {
	p := NewPassThrough(2)

	in := make([]float32, 8) // 4 frames into a 2-frame buffer
	if n := p.InputSamples(in); n != 2 {
		t.Errorf("InputSamples accepted %d frames, want 2 (buffer full)", n)
	}
}

func TestCombReverbDelaysFeedback(t *testing.T) {
	const delayMs = 10
	const sampleRate = 1000 // 1 frame per ms for an easy-to-reason-about delay
	c := NewCombReverb(64, 0.5, delayMs, sampleRate)

	// One loud impulse frame followed by silence.
	frames := make([]float32, 64*2)
	frames[0], frames[1] = 1, 1
	c.InputSamples(frames)

	out := make([]float32, 64*2)
	n := c.GetAudio(out)
	if n != 64 {
		t.Fatalf("GetAudio returned %d frames, want 64", n)
	}

	if out[0] != 1 || out[1] != 1 {
		t.Errorf("frame 0 = (%v, %v), want (1, 1)", out[0], out[1])
	}
	delayed := delayMs // delayOffset frames at this sample rate
	if got := out[delayed*2]; got != 0.5 {
		t.Errorf("frame %d left = %v, want 0.5 (decayed feedback of frame 0)", delayed, got)
	}
}

func TestCombReverbAcceptsEverything(t *testing.T) {
	c := NewCombReverb(8, 0.3, 5, 44100)
	in := make([]float32, 20) // 10 frames
	if n := c.InputSamples(in); n != 10 {
		t.Errorf("InputSamples returned %d, want 10", n)
	}
}

func TestCombReverbGetAudioStopsAtAvailable(t *testing.T) {
	c := NewCombReverb(8, 0.3, 5, 44100)
	c.InputSamples(make([]float32, 4)) // 2 frames

	out := make([]float32, 100)
	if n := c.GetAudio(out); n != 2 {
		t.Errorf("GetAudio returned %d, want 2 (only 2 frames buffered)", n)
	}
	if n := c.GetAudio(out); n != 0 {
		t.Errorf("second GetAudio returned %d, want 0 (already drained)", n)
	}
}
