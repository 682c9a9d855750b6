// xmtoau decodes a libxm compact file and writes a Sun/NeXT .au PCM file —
// the "au audio-file writer" spec.md §1 names as an external collaborator
// of the core. Grounded on the teacher's wav writer (RIFF header written by
// hand with encoding/binary, then raw PCM frames streamed in): the .au
// container needs the same shape, just a different (and simpler,
// fixed-size) header and big-endian samples.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"os"

	"github.com/xm-go/xmplayer"
)

const auMagic = 0x2e736e64 // ".snd"
const auHeaderSize = 24
const auEncodingPCM16 = 3

func main() {
	log.SetFlags(0)
	log.SetPrefix("xmtoau: ")

	hz := flag.Int("hz", 44100, "output sample rate")
	frames := flag.Int("frames", 44100*30, "maximum number of stereo frames to render")
	flag.Parse()

	if flag.NArg() != 2 {
		log.Fatal("usage: xmtoau [-hz 44100] [-frames N] file.libxm out.au")
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	ctx, err := xmplayer.CreateFromLibXM(data, *hz)
	if err != nil {
		log.Fatal(err)
	}

	out, err := os.Create(flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	hdr := struct {
		Magic      uint32
		DataOffset uint32
		DataSize   uint32
		Encoding   uint32
		SampleRate uint32
		Channels   uint32
	}{
		Magic:      auMagic,
		DataOffset: auHeaderSize,
		DataSize:   0xFFFFFFFF, // unknown length, permitted by the .au format
		Encoding:   auEncodingPCM16,
		SampleRate: uint32(*hz),
		Channels:   2,
	}
	if err := binary.Write(out, binary.BigEndian, &hdr); err != nil {
		log.Fatal(err)
	}

	const chunkFrames = 2048
	buf := make([]float32, chunkFrames*2)
	pcm := make([]int16, chunkFrames*2)

	remaining := *frames
	for remaining > 0 {
		n := chunkFrames
		if n > remaining {
			n = remaining
		}
		ctx.GenerateSamples(buf[:n*2], n)
		for i := 0; i < n*2; i++ {
			pcm[i] = quantize(buf[i])
		}
		if err := binary.Write(out, binary.BigEndian, pcm[:n*2]); err != nil {
			log.Fatal(err)
		}
		remaining -= n
	}
}

func quantize(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * 32767)
}
