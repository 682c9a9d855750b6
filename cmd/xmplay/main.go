// xmplay is an interactive terminal player for .xm / .libxm modules: it
// writes audio to the default PortAudio output device and draws a live
// pattern display, with per-channel mute/solo and an optional comb-filter
// reverb. Grounded on the teacher's cmd/modplay/{main.go,play.go}.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xm-go/xmplayer"
)

var (
	flagHz       = flag.Int("hz", 44100, "output hz")
	flagStartOrd = flag.Int("start", 0, "starting order; ignored with a message if out of range")
	flagReverb   = flag.String("reverb", "light", "reverb amount: none, light, medium, silly")
	flagNoUI     = flag.Bool("no-ui", false, "disable the live pattern display")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("xmplay: ")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("Missing module filename")
	}

	fname := flag.Arg(0)
	modF, err := os.ReadFile(fname)
	if err != nil {
		log.Fatal(err)
	}

	var ctx *xmplayer.Context
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".libxm":
		ctx, err = xmplayer.CreateFromLibXM(modF, *flagHz)
	default:
		ctx, err = xmplayer.CreateFromXM(modF, *flagHz)
	}
	if err != nil {
		log.Fatal(err)
	}

	if *flagStartOrd > 0 {
		if err := ctx.Seek(*flagStartOrd, 0, 0); err != nil {
			log.Printf("ignoring -start: %v", err)
		}
	}

	reverb, err := reverbFromFlag(*flagReverb, *flagHz)
	if err != nil {
		log.Fatal(err)
	}

	ap := NewAudioPlayer(ctx, reverb, *flagNoUI)
	if err := ap.Run(); err != nil {
		log.Fatal(err)
	}
}
