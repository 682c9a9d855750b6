// Package wav is a minimal streaming WAVE file writer for xmplayer's
// interleaved stereo float32 output. Wrote my own after trying a couple of
// others that both required knowing the quantity of audio data up front.
// See http://soundfile.sapp.org/doc/WaveFormat/ for format documentation.
//
// Grounded on the teacher's wav package, adapted from its [][]int16
// per-channel WriteFrame (cmd/modwav's wav.Writer) to the single interleaved
// []float32 shape xmplayer.Context.GenerateSamples produces, quantizing to
// 16-bit PCM the way the teacher's own mixer output does.
package wav

import (
	"encoding/binary"
	"io"
)

const pcmFormat = 1

// Writer streams 16-bit stereo PCM frames into a WAVE container, filling in
// the RIFF/data chunk sizes on Finish once the total length is known.
type Writer struct {
	WS io.WriteSeeker
}

type waveFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// NewWriter writes the RIFF/WAVE/fmt header and opens the data chunk,
// returning a Writer ready for WriteFrame calls.
func NewWriter(ws io.WriteSeeker, sampleRate int) (*Writer, error) {
	w := &Writer{WS: ws}

	if _, err := ws.Write([]byte("RIFF")); err != nil {
		return nil, err
	}
	// Placeholder RIFF size, filled in by Finish.
	if err := binary.Write(ws, binary.LittleEndian, int32(0)); err != nil {
		return nil, err
	}
	if _, err := ws.Write([]byte("WAVE")); err != nil {
		return nil, err
	}

	if _, err := ws.Write([]byte("fmt ")); err != nil {
		return nil, err
	}
	if err := binary.Write(ws, binary.LittleEndian, int32(16)); err != nil {
		return nil, err
	}
	format := waveFormat{AudioFormat: pcmFormat, Channels: 2, SampleRate: uint32(sampleRate), BitsPerSample: 16}
	format.ByteRate = uint32(sampleRate) * 2 * (16 / 8)
	format.BlockAlign = 2 * (16 / 8)
	if err := binary.Write(ws, binary.LittleEndian, format); err != nil {
		return nil, err
	}

	if _, err := ws.Write([]byte("data")); err != nil {
		return nil, err
	}
	// Placeholder data size, filled in by Finish.
	if err := binary.Write(ws, binary.LittleEndian, int32(0)); err != nil {
		return nil, err
	}

	return w, nil
}

// WriteFrame quantizes interleaved stereo float32 frames (as produced by
// xmplayer.Context.GenerateSamples) to 16-bit PCM and appends them to the
// data chunk.
func (w *Writer) WriteFrame(samples []float32) error {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = quantize(s)
	}
	return binary.Write(w.WS, binary.LittleEndian, pcm)
}

func quantize(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * 32767)
}

// Finish backfills the RIFF and data chunk sizes now that the total length
// is known. Must be called once after the last WriteFrame.
func (w *Writer) Finish() (int64, error) {
	wlen, err := w.WS.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	offset, err := w.WS.Seek(4, io.SeekStart)
	if offset != 4 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-8)); err != nil {
		return 0, err
	}

	offset, err = w.WS.Seek(40, io.SeekStart)
	if offset != 40 || err != nil {
		return 0, err
	}
	if err := binary.Write(w.WS, binary.LittleEndian, int32(wlen-44)); err != nil {
		return 0, err
	}

	return wlen, nil
}
