package xmplayer

import (
	"bytes"
	"encoding/binary"
	"io"
)

// This file implements the libxm compact serialization format, spec.md
// §4.2/§6: a short header followed by the concatenated flat arrays that
// back a Module, written with the build-selected endianness
// (libxm_le.go/libxm_be.go). It exists to support embedded/read-only
// deployment of an already-parsed module without re-running the XM loader.
//
// New relative to the teacher (which has no compact format) but grounded on
// the teacher's own flat-slice layout: this is a direct encoding/binary dump
// of the same Module/Sample/Pattern shape the XM loader already builds.

var libxmMagic = [4]byte{'L', 'X', 'M', '1'}

const libxmABIVersion byte = 1

// LibXMDumpOptions controls optional post-load transforms applied by
// DumpLibXM, used by the libxmize external tool (spec.md §6).
type LibXMDumpOptions struct {
	// DeltaEncodeWaveform re-applies delta coding to the quantized
	// waveform before writing it, improving compressibility of the
	// resulting file at the cost of a decode pass on load.
	DeltaEncodeWaveform bool

	// ZeroAllWaveforms replaces every sample's waveform with silence,
	// producing a template file for embedded use (libxmize
	// --zero-all-waveforms).
	ZeroAllWaveforms bool
}

type libxmFileHeader struct {
	Magic      [4]byte
	ABIVersion byte
	Endian     byte
	Delta      byte
	ZeroWave   byte

	Channels        uint16
	FrequencyType   byte
	_               byte
	RestartPosition uint16
	OrderLength     uint16
	DefaultTempo    uint16
	DefaultBPM      uint16
	Version         uint16

	NumPatterns    uint32
	NumSlots       uint32
	NumInstruments uint32
	NumSamples     uint32
	NumWaveform    uint32
}

// DumpLibXM serializes an already-loaded Module to the compact libxm
// format, spec.md §4.2.
func DumpLibXM(mod *Module, opts LibXMDumpOptions) ([]byte, error) {
	buf := &bytes.Buffer{}

	hdr := libxmFileHeader{
		Magic:           libxmMagic,
		ABIVersion:      libxmABIVersion,
		Endian:          libxmABIEndian,
		Channels:        uint16(mod.Channels),
		FrequencyType:   byte(mod.FrequencyType),
		RestartPosition: uint16(mod.RestartPosition),
		OrderLength:     uint16(mod.OrderLength),
		DefaultTempo:    uint16(mod.DefaultTempo),
		DefaultBPM:      uint16(mod.DefaultBPM),
		Version:         mod.Version,
		NumPatterns:     uint32(len(mod.Patterns)),
		NumSlots:        uint32(len(mod.Slots)),
		NumInstruments:  uint32(len(mod.Instruments)),
		NumSamples:      uint32(len(mod.Samples)),
		NumWaveform:     uint32(len(mod.Waveform)),
	}
	if opts.DeltaEncodeWaveform {
		hdr.Delta = 1
	}
	if opts.ZeroAllWaveforms {
		hdr.ZeroWave = 1
	}
	if err := binary.Write(buf, libxmByteOrder, &hdr); err != nil {
		return nil, err
	}

	putFixed(buf, mod.Title, 32)
	putFixed(buf, mod.TrackerName, 32)
	binary.Write(buf, libxmByteOrder, mod.Order[:mod.OrderLength])

	for _, p := range mod.Patterns {
		rec := struct {
			NumRows    uint16
			SlotOffset uint32
		}{uint16(p.NumRows), uint32(p.SlotOffset)}
		if err := binary.Write(buf, libxmByteOrder, &rec); err != nil {
			return nil, err
		}
	}

	for _, s := range mod.Slots {
		buf.WriteByte(s.Note)
		buf.WriteByte(s.Instrument)
		buf.WriteByte(s.Volume)
		buf.WriteByte(s.EffectType)
		buf.WriteByte(s.EffectParam)
	}

	for _, inst := range mod.Instruments {
		putFixed(buf, inst.Name, 32)
		binary.Write(buf, libxmByteOrder, uint32(inst.SampleBase))
		binary.Write(buf, libxmByteOrder, uint32(inst.SampleCount))
		buf.Write(inst.NoteSampleMap[:])
		writeEnvelope(buf, &inst.VolumeEnvelope)
		writeEnvelope(buf, &inst.PanningEnvelope)
		binary.Write(buf, libxmByteOrder, uint16(inst.FadeoutAmount))
		vib := struct {
			Waveform byte
			Sweep    uint16
			Depth    uint16
			Rate     uint16
		}{byte(inst.Vibrato.Waveform), uint16(inst.Vibrato.Sweep), uint16(inst.Vibrato.Depth), uint16(inst.Vibrato.Rate)}
		binary.Write(buf, libxmByteOrder, &vib)
	}

	for _, s := range mod.Samples {
		putFixed(buf, s.Name, 32)
		rec := struct {
			Volume       byte
			Panning      uint16
			Finetune     int8
			RelativeNote int8
			LoopMode     byte
			_            byte
			DataOffset   uint32
			Length       uint32
			LoopStart    uint32
			LoopLength   uint32
			C4Speed      uint32
		}{
			Volume:       byte(s.Volume),
			Panning:      uint16(s.Panning),
			Finetune:     int8(s.Finetune),
			RelativeNote: int8(s.RelativeNote),
			LoopMode:     byte(s.LoopMode),
			DataOffset:   uint32(s.DataOffset),
			Length:       uint32(s.Length),
			LoopStart:    uint32(s.LoopStart),
			LoopLength:   uint32(s.LoopLength),
			C4Speed:      uint32(s.C4Speed),
		}
		if err := binary.Write(buf, libxmByteOrder, &rec); err != nil {
			return nil, err
		}
	}

	quantized := make([]int16, len(mod.Waveform))
	if !opts.ZeroAllWaveforms {
		for i, v := range mod.Waveform {
			quantized[i] = quantizeSample(v)
		}
	}
	if opts.DeltaEncodeWaveform {
		quantized = deltaEncode16(quantized)
	}
	if err := binary.Write(buf, libxmByteOrder, quantized); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// CreateFromLibXM parses a libxm compact dump into a playback Context,
// spec.md §4.2/§6.
func CreateFromLibXM(data []byte, sampleRate int) (*Context, error) {
	mod, err := LoadLibXM(data)
	if err != nil {
		return nil, err
	}
	return newContext(mod, sampleRate), nil
}

// LoadLibXM parses a libxm compact dump into a Module.
func LoadLibXM(data []byte) (*Module, error) {
	r := bytes.NewReader(data)

	var hdr libxmFileHeader
	if err := binary.Read(r, libxmByteOrder, &hdr); err != nil {
		return nil, loadErrorf(ErrTruncated, "libxm header: %v", err)
	}
	if hdr.Magic != libxmMagic {
		return nil, loadErrorf(ErrBadMagic, "got %q", hdr.Magic)
	}
	if hdr.ABIVersion != libxmABIVersion {
		return nil, loadErrorf(ErrUnsupportedVersion, "libxm ABI %d", hdr.ABIVersion)
	}
	if hdr.Endian != libxmABIEndian {
		return nil, loadErrorf(ErrEndianMismatch, "file endian %d, build endian %d", hdr.Endian, libxmABIEndian)
	}

	mod := &Module{
		Channels:        int(hdr.Channels),
		FrequencyType:   FrequencyType(hdr.FrequencyType),
		RestartPosition: int(hdr.RestartPosition),
		OrderLength:     int(hdr.OrderLength),
		DefaultTempo:    int(hdr.DefaultTempo),
		DefaultBPM:      int(hdr.DefaultBPM),
		Version:         hdr.Version,
	}
	dumpf("libxm: %d channels, %d patterns, %d instruments, %d samples\n",
		hdr.Channels, hdr.NumPatterns, hdr.NumInstruments, hdr.NumSamples)

	title, err := getFixed(r, 32)
	if err != nil {
		return nil, loadErrorf(ErrTruncated, "title: %v", err)
	}
	tracker, err := getFixed(r, 32)
	if err != nil {
		return nil, loadErrorf(ErrTruncated, "tracker name: %v", err)
	}
	mod.Title, mod.TrackerName = title, tracker

	if _, err := io.ReadFull(r, mod.Order[:mod.OrderLength]); err != nil {
		return nil, loadErrorf(ErrTruncated, "order table: %v", err)
	}

	mod.Patterns = make([]Pattern, hdr.NumPatterns)
	for i := range mod.Patterns {
		rec := struct {
			NumRows    uint16
			SlotOffset uint32
		}{}
		if err := binary.Read(r, libxmByteOrder, &rec); err != nil {
			return nil, loadErrorf(ErrTruncated, "pattern %d: %v", i, err)
		}
		mod.Patterns[i] = Pattern{NumRows: int(rec.NumRows), SlotOffset: int(rec.SlotOffset)}
	}

	mod.Slots = make([]patternSlot, hdr.NumSlots)
	for i := range mod.Slots {
		var b [5]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, loadErrorf(ErrTruncated, "slot %d: %v", i, err)
		}
		mod.Slots[i] = patternSlot{Note: b[0], Instrument: b[1], Volume: b[2], EffectType: b[3], EffectParam: b[4]}
	}

	mod.Instruments = make([]Instrument, hdr.NumInstruments)
	for i := range mod.Instruments {
		inst := &mod.Instruments[i]
		name, err := getFixed(r, 32)
		if err != nil {
			return nil, loadErrorf(ErrTruncated, "instrument %d name: %v", i, err)
		}
		inst.Name = name

		var bases struct{ SampleBase, SampleCount uint32 }
		if err := binary.Read(r, libxmByteOrder, &bases); err != nil {
			return nil, loadErrorf(ErrTruncated, "instrument %d: %v", i, err)
		}
		inst.SampleBase, inst.SampleCount = int(bases.SampleBase), int(bases.SampleCount)

		if _, err := io.ReadFull(r, inst.NoteSampleMap[:]); err != nil {
			return nil, loadErrorf(ErrTruncated, "instrument %d note map: %v", i, err)
		}

		if err := readEnvelope(r, &inst.VolumeEnvelope); err != nil {
			return nil, loadErrorf(ErrBadEnvelope, "instrument %d volume envelope: %v", i, err)
		}
		if err := readEnvelope(r, &inst.PanningEnvelope); err != nil {
			return nil, loadErrorf(ErrBadEnvelope, "instrument %d panning envelope: %v", i, err)
		}

		var fadeout uint16
		if err := binary.Read(r, libxmByteOrder, &fadeout); err != nil {
			return nil, loadErrorf(ErrTruncated, "instrument %d fadeout: %v", i, err)
		}
		inst.FadeoutAmount = int(fadeout)

		var vib struct {
			Waveform byte
			Sweep    uint16
			Depth    uint16
			Rate     uint16
		}
		if err := binary.Read(r, libxmByteOrder, &vib); err != nil {
			return nil, loadErrorf(ErrTruncated, "instrument %d vibrato: %v", i, err)
		}
		inst.Vibrato = AutoVibrato{Waveform: VibratoWaveform(vib.Waveform), Sweep: int(vib.Sweep), Depth: int(vib.Depth), Rate: int(vib.Rate)}
	}

	mod.Samples = make([]Sample, hdr.NumSamples)
	for i := range mod.Samples {
		name, err := getFixed(r, 32)
		if err != nil {
			return nil, loadErrorf(ErrTruncated, "sample %d name: %v", i, err)
		}
		rec := struct {
			Volume       byte
			Panning      uint16
			Finetune     int8
			RelativeNote int8
			LoopMode     byte
			_            byte
			DataOffset   uint32
			Length       uint32
			LoopStart    uint32
			LoopLength   uint32
			C4Speed      uint32
		}{}
		if err := binary.Read(r, libxmByteOrder, &rec); err != nil {
			return nil, loadErrorf(ErrBadSample, "sample %d: %v", i, err)
		}
		mod.Samples[i] = Sample{
			Name:         name,
			Volume:       int(rec.Volume),
			Panning:      int(rec.Panning),
			Finetune:     int(rec.Finetune),
			RelativeNote: int(rec.RelativeNote),
			LoopMode:     LoopMode(rec.LoopMode),
			DataOffset:   int(rec.DataOffset),
			Length:       int(rec.Length),
			LoopStart:    int(rec.LoopStart),
			LoopLength:   int(rec.LoopLength),
			C4Speed:      int(rec.C4Speed),
		}
	}

	quantized := make([]int16, hdr.NumWaveform)
	if err := binary.Read(r, libxmByteOrder, quantized); err != nil {
		return nil, loadErrorf(ErrTruncated, "waveform: %v", err)
	}
	if hdr.Delta != 0 {
		quantized = deltaDecode16(quantized)
	}
	mod.Waveform = make([]float32, len(quantized))
	for i, v := range quantized {
		mod.Waveform[i] = float32(v) / 32768.0
	}

	return mod, nil
}

// quantizeSample is the exact inverse of loadSampleData's float32(v)/32768.0
// decode, so a sample that started life as 16-bit XM PCM round-trips through
// DumpLibXM/LoadLibXM bit for bit, per spec.md §8's round-trip law.
func quantizeSample(v float32) int16 {
	scaled := v * 32768.0
	if scaled >= 32767 {
		return 32767
	}
	if scaled <= -32768 {
		return -32768
	}
	if scaled >= 0 {
		return int16(scaled + 0.5)
	}
	return int16(scaled - 0.5)
}

func writeEnvelope(buf *bytes.Buffer, e *Envelope) {
	flags := byte(0)
	if e.Enabled {
		flags |= 0x01
	}
	if e.SustainEnabled {
		flags |= 0x02
	}
	if e.LoopEnabled {
		flags |= 0x04
	}
	buf.WriteByte(byte(e.NumPoints))
	buf.WriteByte(flags)
	buf.WriteByte(byte(e.SustainPoint))
	buf.WriteByte(byte(e.LoopStartPoint))
	buf.WriteByte(byte(e.LoopEndPoint))
	for _, p := range e.Points {
		binary.Write(buf, libxmByteOrder, uint16(p.Frame))
		binary.Write(buf, libxmByteOrder, uint16(p.Value))
	}
}

func readEnvelope(r *bytes.Reader, e *Envelope) error {
	var fixedHdr [5]byte
	if _, err := io.ReadFull(r, fixedHdr[:]); err != nil {
		return err
	}
	e.NumPoints = int(fixedHdr[0])
	flags := fixedHdr[1]
	e.Enabled = flags&0x01 != 0
	e.SustainEnabled = flags&0x02 != 0
	e.LoopEnabled = flags&0x04 != 0
	e.SustainPoint = int(fixedHdr[2])
	e.LoopStartPoint = int(fixedHdr[3])
	e.LoopEndPoint = int(fixedHdr[4])

	for i := range e.Points {
		var p struct{ Frame, Value uint16 }
		if err := binary.Read(r, libxmByteOrder, &p); err != nil {
			return err
		}
		e.Points[i] = EnvelopePoint{Frame: int(p.Frame), Value: int(p.Value)}
	}
	return nil
}

func putFixed(buf *bytes.Buffer, s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	buf.Write(b)
}

func getFixed(r *bytes.Reader, n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	end := bytes.IndexByte(b, 0)
	if end < 0 {
		end = n
	}
	return string(b[:end]), nil
}
