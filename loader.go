package xmplayer

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
)

// CreateFromXM parses raw .xm file bytes into a playback Context, spec.md
// §4.1/§6. Grounded on the teacher's NewMODSongFromBytes/NewS3MSongFromBytes
// (mod.go/s3m.go): a bytes.Reader walked with encoding/binary.Read into
// anonymous packed structs, generalized to XM's variable-size headers and
// presence-bit pattern compression.
func CreateFromXM(data []byte, sampleRate int) (*Context, error) {
	mod, err := loadXM(data)
	if err != nil {
		return nil, err
	}
	return newContext(mod, sampleRate), nil
}

// LoadXM parses raw .xm file bytes into a Module without building a
// playback Context, for tools (cmd/xmize) that need the parsed
// module itself rather than a ready-to-play engine.
func LoadXM(data []byte) (*Module, error) {
	return loadXM(data)
}

const xmMagic = "Extended Module: "

func loadXM(data []byte) (*Module, error) {
	r := bytes.NewReader(data)

	if r.Len() < 60 {
		return nil, loadErrorf(ErrTruncated, "file shorter than the XM main header")
	}

	magic := make([]byte, len(xmMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, loadErrorf(ErrTruncated, "reading magic: %v", err)
	}
	if string(magic) != xmMagic {
		return nil, loadErrorf(ErrBadMagic, "got %q", magic)
	}

	name := make([]byte, 20)
	io.ReadFull(r, name)

	var marker byte
	binary.Read(r, binary.LittleEndian, &marker) // 0x1A
	if marker != 0x1A {
		return nil, loadErrorf(ErrBadMagic, "missing 0x1A marker byte")
	}

	trackerName := make([]byte, 20)
	io.ReadFull(r, trackerName)

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, loadErrorf(ErrTruncated, "reading version: %v", err)
	}
	if version < 0x0104 {
		return nil, loadErrorf(ErrUnsupportedVersion, "version %#04x", version)
	}

	mod := &Module{
		Title:       strings.TrimRight(string(name), "\x00"),
		TrackerName: strings.TrimRight(string(trackerName), "\x00"),
		Version:     version,
	}
	dumpf("module %q by %q, xm version %#04x\n", mod.Title, mod.TrackerName, version)

	var headerSize uint32
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, loadErrorf(ErrTruncated, "reading header size: %v", err)
	}
	headerStart, _ := r.Seek(0, io.SeekCurrent)

	songHeader := struct {
		Length         uint16
		RestartPos     uint16
		NumChannels    uint16
		NumPatterns    uint16
		NumInstruments uint16
		Flags          uint16
		DefaultTempo   uint16
		DefaultBPM     uint16
		OrderTable     [MaxOrders]byte
	}{}
	if err := binary.Read(r, binary.LittleEndian, &songHeader); err != nil {
		return nil, loadErrorf(ErrTruncated, "reading song header: %v", err)
	}

	if songHeader.NumChannels < 1 || songHeader.NumChannels > MaxChannels {
		return nil, loadErrorf(ErrTooManyChannels, "%d channels", songHeader.NumChannels)
	}
	if songHeader.NumPatterns > MaxPatterns {
		return nil, loadErrorf(ErrTooManyPatterns, "%d patterns", songHeader.NumPatterns)
	}
	if songHeader.NumInstruments > MaxInstruments {
		return nil, loadErrorf(ErrTooManyInstruments, "%d instruments", songHeader.NumInstruments)
	}

	mod.Channels = int(songHeader.NumChannels)
	if songHeader.Flags&1 != 0 {
		mod.FrequencyType = FrequencyLinear
	} else {
		mod.FrequencyType = FrequencyAmiga
	}
	mod.DefaultTempo = clampInt(int(songHeader.DefaultTempo), 1, 31)
	mod.DefaultBPM = clampInt(int(songHeader.DefaultBPM), 32, 255)

	orderLength := int(songHeader.Length)
	if orderLength > MaxOrders {
		orderLength = MaxOrders
	}
	mod.OrderLength = orderLength
	copy(mod.Order[:], songHeader.OrderTable[:orderLength])

	numPatterns := int(songHeader.NumPatterns)
	for i := 0; i < orderLength; i++ {
		if numPatterns > 0 && int(mod.Order[i]) >= numPatterns {
			mod.Order[i] = 0
		}
	}
	mod.RestartPosition = int(songHeader.RestartPos)
	if orderLength > 0 && mod.RestartPosition >= orderLength {
		mod.RestartPosition = 0
	}

	// Jump to the start of pattern data using the declared header size,
	// which tolerates trailing reserved bytes newer trackers may add.
	if _, err := r.Seek(headerStart+int64(headerSize), io.SeekStart); err != nil {
		return nil, loadErrorf(ErrTruncated, "seeking past song header: %v", err)
	}

	if err := loadPatterns(r, mod, numPatterns); err != nil {
		return nil, err
	}

	if err := loadInstruments(r, mod, int(songHeader.NumInstruments)); err != nil {
		return nil, err
	}

	return mod, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func loadPatterns(r *bytes.Reader, mod *Module, numPatterns int) error {
	mod.Patterns = make([]Pattern, numPatterns)

	for i := 0; i < numPatterns; i++ {
		patHeader := struct {
			HeaderLen  uint32
			PackType   byte
			NumRows    uint16
			PackedSize uint16
		}{}
		if err := binary.Read(r, binary.LittleEndian, &patHeader); err != nil {
			return loadErrorf(ErrTruncated, "pattern %d header: %v", i, err)
		}
		headerEnd, _ := r.Seek(0, io.SeekCurrent)
		headerEnd += int64(patHeader.HeaderLen) - 9 // any trailing reserved bytes in the header

		numRows := int(patHeader.NumRows)
		if numRows == 0 {
			numRows = MaxRowsPerPattern
		}
		if numRows < 1 || numRows > MaxRowsPerPattern {
			return loadErrorf(ErrBadPattern, "pattern %d has %d rows", i, numRows)
		}

		mod.Patterns[i] = Pattern{NumRows: numRows, SlotOffset: len(mod.Slots)}
		slots := make([]patternSlot, numRows*mod.Channels)

		if headerEnd > 0 {
			if _, err := r.Seek(headerEnd, io.SeekStart); err != nil {
				return loadErrorf(ErrTruncated, "pattern %d: %v", i, err)
			}
		}

		packed := make([]byte, patHeader.PackedSize)
		if _, err := io.ReadFull(r, packed); err != nil {
			return loadErrorf(ErrTruncated, "pattern %d packed data: %v", i, err)
		}

		if err := unpackPattern(packed, slots); err != nil {
			return loadErrorf(ErrBadPattern, "pattern %d: %v", i, err)
		}

		mod.Slots = append(mod.Slots, slots...)
	}

	return nil
}

// unpackPattern decodes the presence-bit-compressed cell stream described in
// spec.md §4.1 step 3 into a flat slot array.
func unpackPattern(packed []byte, slots []patternSlot) error {
	pos := 0
	for i := range slots {
		if pos >= len(packed) {
			return nil // short packed data: remaining slots stay zero
		}
		first := packed[pos]
		pos++

		var fields byte
		var haveByte bool
		if first&0x80 != 0 {
			fields = first & 0x1F
		} else {
			fields = 0x1F
			haveByte = true
		}

		slot := &slots[i]
		if fields&0x01 != 0 {
			if haveByte {
				slot.Note = first
			} else {
				if pos >= len(packed) {
					return nil
				}
				slot.Note = packed[pos]
				pos++
			}
		}
		if fields&0x02 != 0 {
			if pos >= len(packed) {
				return nil
			}
			slot.Instrument = packed[pos]
			pos++
		}
		if fields&0x04 != 0 {
			if pos >= len(packed) {
				return nil
			}
			slot.Volume = packed[pos]
			pos++
		}
		if fields&0x08 != 0 {
			if pos >= len(packed) {
				return nil
			}
			slot.EffectType = packed[pos]
			pos++
		}
		if fields&0x10 != 0 {
			if pos >= len(packed) {
				return nil
			}
			slot.EffectParam = packed[pos]
			pos++
		}
	}
	return nil
}

func loadInstruments(r *bytes.Reader, mod *Module, numInstruments int) error {
	mod.Instruments = make([]Instrument, numInstruments)

	for i := 0; i < numInstruments; i++ {
		instStart, _ := r.Seek(0, io.SeekCurrent)

		var headerLen uint32
		if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
			return loadErrorf(ErrTruncated, "instrument %d header size: %v", i, err)
		}

		nameBuf := make([]byte, 22)
		io.ReadFull(r, nameBuf)
		var instType byte
		binary.Read(r, binary.LittleEndian, &instType)
		var numSamples uint16
		if err := binary.Read(r, binary.LittleEndian, &numSamples); err != nil {
			return loadErrorf(ErrTruncated, "instrument %d sample count: %v", i, err)
		}

		inst := &mod.Instruments[i]
		inst.Name = strings.TrimRight(string(nameBuf), "\x00")
		inst.SampleBase = len(mod.Samples)

		if int(numSamples) > MaxSamplesPerInstrument {
			return loadErrorf(ErrTooManySamples, "instrument %d has %d samples", i, numSamples)
		}
		inst.SampleCount = int(numSamples)

		var sampleHeaderSize uint32
		sampleHeaders := make([]xmSampleHeader, numSamples)

		if numSamples > 0 {
			if err := binary.Read(r, binary.LittleEndian, &sampleHeaderSize); err != nil {
				return loadErrorf(ErrTruncated, "instrument %d extended header: %v", i, err)
			}

			var noteMap [NoteSampleMapSize]byte
			io.ReadFull(r, noteMap[:])
			for n, s := range noteMap {
				if int(s) >= int(numSamples) {
					s = 0
				}
				inst.NoteSampleMap[n] = s
			}

			volPoints, err := readEnvelopePoints(r)
			if err != nil {
				return loadErrorf(ErrBadEnvelope, "instrument %d volume envelope: %v", i, err)
			}
			panPoints, err := readEnvelopePoints(r)
			if err != nil {
				return loadErrorf(ErrBadEnvelope, "instrument %d panning envelope: %v", i, err)
			}

			var env struct {
				NumVolPoints, NumPanPoints             byte
				VolSustain, VolLoopStart, VolLoopEnd    byte
				PanSustain, PanLoopStart, PanLoopEnd    byte
				VolType, PanType                        byte
				VibratoType, VibratoSweep, VibratoDepth byte
				VibratoRate                              byte
				FadeOut                                  uint16
				Reserved                                  [2]byte
			}
			if err := binary.Read(r, binary.LittleEndian, &env); err != nil {
				return loadErrorf(ErrTruncated, "instrument %d envelope header: %v", i, err)
			}

			buildEnvelope(&inst.VolumeEnvelope, volPoints, int(env.NumVolPoints), env.VolType, int(env.VolSustain), int(env.VolLoopStart), int(env.VolLoopEnd))
			buildEnvelope(&inst.PanningEnvelope, panPoints, int(env.NumPanPoints), env.PanType, int(env.PanSustain), int(env.PanLoopStart), int(env.PanLoopEnd))

			inst.FadeoutAmount = clampInt(int(env.FadeOut), 0, MaxFadeoutVolume)
			inst.Vibrato = AutoVibrato{
				Waveform: VibratoWaveform(env.VibratoType & 0x3),
				Sweep:    int(env.VibratoSweep),
				Depth:    int(env.VibratoDepth),
				Rate:     int(env.VibratoRate),
			}

			if _, err := r.Seek(instStart+int64(headerLen), io.SeekStart); err != nil {
				return loadErrorf(ErrTruncated, "instrument %d: %v", i, err)
			}

			for s := 0; s < int(numSamples); s++ {
				hdr, err := readSampleHeader(r, int(sampleHeaderSize))
				if err != nil {
					return loadErrorf(ErrBadSample, "instrument %d sample %d: %v", i, s, err)
				}
				sampleHeaders[s] = hdr
			}

			for s := 0; s < int(numSamples); s++ {
				sample, err := loadSampleData(r, sampleHeaders[s])
				if err != nil {
					return loadErrorf(ErrBadSample, "instrument %d sample %d data: %v", i, s, err)
				}
				sample.DataOffset = len(mod.Waveform)
				mod.Waveform = append(mod.Waveform, waveformOf(sample)...)
				mod.Samples = append(mod.Samples, sample.Sample)
			}
		} else {
			if _, err := r.Seek(instStart+int64(headerLen), io.SeekStart); err != nil {
				return loadErrorf(ErrTruncated, "instrument %d: %v", i, err)
			}
		}

		dumpf("instrument %d %q: %d samples\n", i+1, inst.Name, inst.SampleCount)
	}

	return nil
}

func readEnvelopePoints(r *bytes.Reader) ([MaxEnvelopePoints]EnvelopePoint, error) {
	var raw [MaxEnvelopePoints]struct{ Frame, Value uint16 }
	var points [MaxEnvelopePoints]EnvelopePoint
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return points, err
	}
	for i, p := range raw {
		points[i] = EnvelopePoint{Frame: int(p.Frame), Value: int(p.Value)}
	}
	return points, nil
}

// buildEnvelope applies the invariants of spec.md §3: points must be
// strictly ordered by frame (num_points clamped to the valid prefix),
// sustain/loop points out of range disable that feature, loop_start <=
// loop_end.
func buildEnvelope(e *Envelope, points [MaxEnvelopePoints]EnvelopePoint, numPoints int, flags byte, sustain, loopStart, loopEnd int) {
	n := clampInt(numPoints, 0, MaxEnvelopePoints)
	for i := 1; i < n; i++ {
		if points[i].Frame <= points[i-1].Frame {
			n = i
			break
		}
	}
	e.NumPoints = n
	for i := 0; i < n; i++ {
		e.Points[i] = EnvelopePoint{Frame: points[i].Frame, Value: clampInt(points[i].Value, 0, MaxVolume)}
	}

	e.Enabled = flags&0x01 != 0 && n > 0
	e.SustainEnabled = flags&0x02 != 0 && sustain >= 0 && sustain < n
	e.LoopEnabled = flags&0x04 != 0 && loopStart >= 0 && loopEnd < n && loopStart <= loopEnd
	e.SustainPoint = sustain
	e.LoopStartPoint = loopStart
	e.LoopEndPoint = loopEnd
}

type xmSampleHeader struct {
	Length       uint32
	LoopStart    uint32
	LoopLength   uint32
	Volume       byte
	Finetune     int8
	Type         byte
	Panning      byte
	RelativeNote int8
	Name         string
}

func readSampleHeader(r *bytes.Reader, headerSize int) (xmSampleHeader, error) {
	start, _ := r.Seek(0, io.SeekCurrent)

	raw := struct {
		Length       uint32
		LoopStart    uint32
		LoopLength   uint32
		Volume       byte
		Finetune     int8
		Type         byte
		Panning      byte
		RelativeNote int8
		Reserved     byte
		Name         [22]byte
	}{}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return xmSampleHeader{}, err
	}

	if headerSize > 0 {
		if _, err := r.Seek(start+int64(headerSize), io.SeekStart); err != nil {
			return xmSampleHeader{}, err
		}
	}

	return xmSampleHeader{
		Length:       raw.Length,
		LoopStart:    raw.LoopStart,
		LoopLength:   raw.LoopLength,
		Volume:       raw.Volume,
		Finetune:     raw.Finetune,
		Type:         raw.Type,
		Panning:      raw.Panning,
		RelativeNote: raw.RelativeNote,
		Name:         strings.TrimRight(string(raw.Name[:]), "\x00"),
	}, nil
}

type loadedSample struct {
	Sample
	pcm []float32
}

func waveformOf(s loadedSample) []float32 { return s.pcm }

// loadSampleData reads, undeltas and normalizes one sample's waveform,
// spec.md §4.1 steps 5-6.
func loadSampleData(r *bytes.Reader, hdr xmSampleHeader) (loadedSample, error) {
	is16 := hdr.Type&0x10 != 0
	loopType := LoopMode(hdr.Type & 0x03)
	if loopType > LoopPingPong {
		loopType = LoopNone
	}

	length := int(hdr.Length)
	loopStart := int(hdr.LoopStart)
	loopLength := int(hdr.LoopLength)
	if is16 {
		length /= 2
		loopStart /= 2
		loopLength /= 2
	}

	maxLength := 1 << (32 - MicrostepBits)
	if length > maxLength {
		length = maxLength
	}

	pcm := make([]float32, length)
	if length > 0 {
		if is16 {
			raw := make([]int16, length)
			if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
				return loadedSample{}, err
			}
			for i, v := range deltaDecode16(raw) {
				pcm[i] = float32(v) / 32768.0
			}
		} else {
			raw := make([]int8, length)
			if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
				return loadedSample{}, err
			}
			for i, v := range deltaDecode8(raw) {
				pcm[i] = float32(v) / 128.0
			}
		}
	}

	if loopLength < 2 || loopStart+loopLength > length {
		loopType = LoopNone
		loopLength = 0
		loopStart = 0
	}

	finetune := clampInt(int(hdr.Finetune)/8, -16, 15)
	panning := clampInt(int(hdr.Panning)*MaxPanning/255, 0, MaxPanning)

	s := Sample{
		Name:         hdr.Name,
		Volume:       clampInt(int(hdr.Volume), 0, MaxVolume),
		Panning:      panning,
		Finetune:     finetune,
		RelativeNote: int(hdr.RelativeNote),
		LoopMode:     loopType,
		Length:       length,
		LoopStart:    loopStart,
		LoopLength:   loopLength,
	}

	return loadedSample{Sample: s, pcm: pcm}, nil
}
