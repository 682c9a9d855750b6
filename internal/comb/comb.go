// Package comb implements a simple comb-filter reverb over the interleaved
// stereo float32 frames produced by xmplayer.Context.GenerateSamples.
//
// Grounded on the teacher's internal/comb package (Comb/CombAdd, int16
// sample-pair buffers): the same delayed-feedback algorithm, adapted from a
// fixed []int16 buffer to streaming []float32 stereo frames so it can sit
// in cmd/xmplay's real-time audio callback the way the teacher's CombAdd
// sits in cmd/modplay's, and reframed in terms of stereo frames rather than
// raw sample pairs.
package comb

// Reverber is implemented by anything that can accept freshly generated
// audio and hand back reverberated audio. cmd/xmplay selects an
// implementation from its -reverb flag the way the teacher's
// cmd/internal/config.ReverbFromFlag does.
type Reverber interface {
	// InputSamples feeds newly generated interleaved stereo frames into the
	// reverb and returns how many frames it accepted.
	InputSamples(in []float32) int
	// GetAudio fills out with reverberated interleaved stereo frames and
	// returns how many frames were written.
	GetAudio(out []float32) int
}

// PassThrough is a Reverber that copies audio through unmodified, used when
// reverb is disabled.
type PassThrough struct {
	buf               []float32 // interleaved stereo, ring buffer of capFrames frames
	capFrames         int
	readPos, writePos int
	n                 int // buffered frames
}

var _ Reverber = (*PassThrough)(nil)

// NewPassThrough creates a PassThrough with room for capFrames stereo
// frames of buffering.
func NewPassThrough(capFrames int) *PassThrough {
	return &PassThrough{buf: make([]float32, capFrames*2), capFrames: capFrames}
}

func (p *PassThrough) InputSamples(in []float32) int {
	frames := len(in) / 2
	free := p.capFrames - p.n
	if frames > free {
		frames = free
	}
	if frames == 0 {
		return 0
	}

	for i := 0; i < frames; i++ {
		wp := (p.writePos + i) % p.capFrames
		p.buf[wp*2+0] = in[i*2+0]
		p.buf[wp*2+1] = in[i*2+1]
	}
	p.writePos = (p.writePos + frames) % p.capFrames
	p.n += frames
	return frames
}

func (p *PassThrough) GetAudio(out []float32) int {
	frames := len(out) / 2
	if frames > p.n {
		frames = p.n
	}
	if frames == 0 {
		return 0
	}

	for i := 0; i < frames; i++ {
		rp := (p.readPos + i) % p.capFrames
		out[i*2+0] = p.buf[rp*2+0]
		out[i*2+1] = p.buf[rp*2+1]
	}
	p.readPos = (p.readPos + frames) % p.capFrames
	p.n -= frames
	return frames
}

// CombReverb is a comb-filter reverb: every frame delayOffset frames in the
// past is fed back into the current frame scaled by decay. Frames are
// appended to an ever-growing buffer, matching the teacher's CombAdd: it
// does not discard used frames, so memory use grows with total playback
// length, an accepted tradeoff for this simple implementation.
type CombReverb struct {
	delayOffset int // in stereo frames
	decay       float32

	audio    []float32 // interleaved stereo, grows via append
	readPos  int       // in frames
	writePos int       // in frames; next frame not yet fed back
}

var _ Reverber = (*CombReverb)(nil)

// NewCombReverb creates a comb reverb with the given decay (0..1) and delay
// in milliseconds at sampleRate, grounded on the teacher's NewCombAdd.
// initialCapFrames preallocates the backing buffer in stereo frames.
func NewCombReverb(initialCapFrames int, decay float32, delayMs, sampleRate int) *CombReverb {
	return &CombReverb{
		delayOffset: (delayMs * sampleRate) / 1000,
		decay:       decay,
		audio:       make([]float32, 0, initialCapFrames*2),
	}
}

// InputSamples feeds in (interleaved stereo frames) into the reverb and
// returns len(in)/2: the buffer always accepts everything given to it.
func (c *CombReverb) InputSamples(in []float32) int {
	frames := len(in) / 2
	c.audio = append(c.audio, in...)

	total := len(c.audio) / 2
	for ; c.writePos+c.delayOffset < total; c.writePos++ {
		src := c.writePos * 2
		dst := (c.writePos + c.delayOffset) * 2
		c.audio[dst+0] += c.audio[src+0] * c.decay
		c.audio[dst+1] += c.audio[src+1] * c.decay
	}

	return frames
}

// GetAudio copies reverberated frames into out, returning how many frames
// were written (fewer than len(out)/2 if the reverb has not buffered that
// much yet).
func (c *CombReverb) GetAudio(out []float32) int {
	want := len(out) / 2
	have := len(c.audio)/2 - c.readPos
	if want > have {
		want = have
	}
	if want <= 0 {
		return 0
	}
	copy(out[:want*2], c.audio[c.readPos*2:(c.readPos+want)*2])
	c.readPos += want
	return want
}
