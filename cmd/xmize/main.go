// xmize parses a .xm file and dumps it to the compact libxm format on
// stdout, for embedded/read-only deployment (spec.md §4.2/§6). Grounded on
// the teacher's cmd/moddump in structure (stdlib flag/log, a single input
// file, fatal on error); the dump itself is new relative to the teacher,
// which has no compact format.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/xm-go/xmplayer"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("xmize: ")

	zeroWaveforms := flag.Bool("zero-all-waveforms", false, "replace every sample waveform with silence, producing a template file")
	deltaEncode := flag.Bool("delta", false, "re-delta-code the waveform for better compressibility")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: xmize [--zero-all-waveforms] [--delta] file.xm > file.libxm")
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	mod, err := xmplayer.LoadXM(data)
	if err != nil {
		log.Fatal(err)
	}

	out, err := xmplayer.DumpLibXM(mod, xmplayer.LibXMDumpOptions{
		ZeroAllWaveforms:    *zeroWaveforms,
		DeltaEncodeWaveform: *deltaEncode,
	})
	if err != nil {
		log.Fatal(err)
	}

	if _, err := os.Stdout.Write(out); err != nil {
		log.Fatal(err)
	}
}
