// xmwav renders a .xm or .libxm module to a WAVE file, headless: no audio
// device, no UI. Grounded on the teacher's cmd/modwav/main.go (flag-based
// -wav output path, SIGINT handling, a fixed-size scratch buffer fed into
// wav.Writer in a loop).
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/xm-go/xmplayer"
	"github.com/xm-go/xmplayer/wav"
)

const outputHz = 44100

func main() {
	log.SetFlags(0)
	log.SetPrefix("xmwav: ")

	wavOut := flag.String("wav", "", "output WAVE file path")
	loops := flag.Int("loops", 1, "stop after this many times through the order table (0 = run forever)")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("Missing module filename")
	}
	if *wavOut == "" {
		log.Fatal("No -wav option provided")
	}

	modF, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	var ctx *xmplayer.Context
	switch strings.ToLower(filepath.Ext(flag.Arg(0))) {
	case ".libxm":
		ctx, err = xmplayer.CreateFromLibXM(modF, outputHz)
	default:
		ctx, err = xmplayer.CreateFromXM(modF, outputHz)
	}
	if err != nil {
		log.Fatal(err)
	}
	ctx.SetMaxLoopCount(*loops)

	wavF, err := os.Create(*wavOut)
	if err != nil {
		log.Fatal(err)
	}
	defer wavF.Close()

	wavW, err := wav.NewWriter(wavF, outputHz)
	if err != nil {
		log.Fatal(err)
	}
	defer wavW.Finish()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT)

	const chunkFrames = 2048
	audioOut := make([]float32, chunkFrames*2)

	playing := true
	go func() {
		<-sigc
		playing = false
	}()

	for playing && (*loops == 0 || ctx.GetLoopCount() < *loops) {
		ctx.GenerateSamples(audioOut, chunkFrames)
		if err = wavW.WriteFrame(audioOut); err != nil {
			wavF.Close()
			log.Fatal(err)
		}
	}
}
