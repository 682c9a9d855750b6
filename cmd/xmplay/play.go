package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"
	"github.com/xm-go/xmplayer"
	"github.com/xm-go/xmplayer/internal/comb"
)

var (
	white   = color.New(color.FgWhite).SprintfFunc()
	cyan    = color.New(color.FgCyan).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	blue    = color.New(color.FgHiBlue).SprintFunc()
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

const (
	scratchBufferFrames = 10 * 1024
	audioBufferFrames   = 756 / 2
)

// AudioPlayer encapsulates audio playback and the live UI, grounded on the
// teacher's cmd/modplay/play.go AudioPlayer.
type AudioPlayer struct {
	ctx    *xmplayer.Context
	reverb comb.Reverber
	stream *portaudio.Stream

	scratchIn []float32

	uiWriter        io.Writer
	selectedChannel int
	soloChannel     int
	lastState       xmplayer.PlayerState

	ctxDone        context.Context
	cancelFn       context.CancelFunc
	wg             sync.WaitGroup
	stopOnce       sync.Once
	terminated     bool
	keyboardDoneCh chan struct{}
}

// NewAudioPlayer creates a new AudioPlayer instance.
func NewAudioPlayer(ctx *xmplayer.Context, reverb comb.Reverber, noUI bool) *AudioPlayer {
	var uiw io.Writer = os.Stdout
	if noUI {
		uiw = io.Discard
	}

	cdone, cancel := context.WithCancel(context.Background())

	return &AudioPlayer{
		ctx:            ctx,
		reverb:         reverb,
		scratchIn:      make([]float32, scratchBufferFrames*2),
		uiWriter:       uiw,
		soloChannel:    -1,
		ctxDone:        cdone,
		cancelFn:       cancel,
		keyboardDoneCh: make(chan struct{}),
	}
}

// Run starts the audio playback and UI rendering, blocking until the user
// exits (Stop is called).
func (ap *AudioPlayer) Run() error {
	if err := ap.initialize(); err != nil {
		return err
	}
	if err := ap.setupAudioStream(); err != nil {
		return err
	}
	ap.setupSignalHandlers()
	ap.setupKeyboardHandlers()

	fmt.Fprint(ap.uiWriter, hideCursor)
	fmt.Fprintln(ap.uiWriter, ap.ctx.Title())

	for {
		select {
		case <-ap.ctxDone.Done():
			goto exit
		default:
		}

		state := ap.ctx.State()
		if state != ap.lastState {
			ap.renderUI(state)
			ap.lastState = state
		}
	}

exit:
	fmt.Fprint(ap.uiWriter, showCursor)

	select {
	case <-ap.keyboardDoneCh:
	case <-time.After(500 * time.Millisecond):
	}

	ap.wg.Wait()
	return nil
}

func (ap *AudioPlayer) initialize() error {
	return portaudio.Initialize()
}

func (ap *AudioPlayer) setupAudioStream() error {
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(*flagHz), audioBufferFrames, ap.streamCallback)
	if err != nil {
		return err
	}
	ap.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		return err
	}
	return nil
}

// streamCallback is called by PortAudio to pull interleaved stereo float32
// samples; it generates engine audio, then runs it through the reverb
// stage, grounded on the teacher's streamCallback.
func (ap *AudioPlayer) streamCallback(out []float32) {
	sc := ap.scratchIn[:len(out)]

	ap.ctx.GenerateSamples(sc, len(out)/2)
	ap.reverb.InputSamples(sc)
	n := ap.reverb.GetAudio(out)

	for i := n * 2; i < len(out); i++ {
		out[i] = 0
	}
}

func (ap *AudioPlayer) setupSignalHandlers() {
	sigch := make(chan os.Signal, 5)
	signal.Notify(sigch, syscall.SIGINT)

	ap.wg.Add(1)
	go func() {
		defer ap.wg.Done()
		select {
		case <-ap.ctxDone.Done():
		case <-sigch:
			ap.Stop()
		}
	}()
}

func (ap *AudioPlayer) setupKeyboardHandlers() {
	ap.wg.Add(1)
	go func() {
		defer ap.wg.Done()
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			if key.Code == keys.CtrlC || key.Code == keys.Escape {
				ap.Stop()
				return true, nil
			}
			ap.handleKeyPress(key)
			return false, nil
		})
		close(ap.keyboardDoneCh)
	}()
}

func (ap *AudioPlayer) handleKeyPress(key keys.Key) {
	n := ap.ctx.NumChannels()
	switch key.Code {
	case keys.Left:
		if ap.selectedChannel > 0 {
			ap.selectedChannel--
		}
	case keys.Right:
		if ap.selectedChannel < n-1 {
			ap.selectedChannel++
		}
	case keys.RuneKey:
		if len(key.Runes) == 0 {
			return
		}
		switch key.Runes[0] {
		case 'q':
			ap.ctx.MuteChannel(ap.selectedChannel, !ap.channelMuted(ap.selectedChannel))
		case 's':
			if ap.soloChannel == ap.selectedChannel {
				ap.soloChannel = -1
				for i := 0; i < n; i++ {
					ap.ctx.MuteChannel(i, false)
				}
			} else {
				ap.soloChannel = ap.selectedChannel
				for i := 0; i < n; i++ {
					ap.ctx.MuteChannel(i, i != ap.selectedChannel)
				}
			}
		}
	}
}

func (ap *AudioPlayer) channelMuted(ch int) bool {
	nd, ok := ap.ctx.NoteDataFor(ch)
	return ok && nd.Muted
}

// Stop performs a clean shutdown, idempotent via stopOnce.
func (ap *AudioPlayer) Stop() {
	ap.stopOnce.Do(func() {
		ap.cancelFn()

		if ap.stream != nil {
			ap.stream.Stop()
			ap.stream.Close()
		}
		if !ap.terminated {
			portaudio.Terminate()
			ap.terminated = true
		}

		fmt.Fprint(ap.uiWriter, showCursor)
	})
}

// renderUI draws the header line plus a window of pattern rows around the
// current position.
func (ap *AudioPlayer) renderUI(state xmplayer.PlayerState) {
	fmt.Fprintf(ap.uiWriter, "%s %03d %s %03X %s %3d %s %3d\n",
		blue("order"), state.Order, blue("row"), state.Row, blue("bpm"), state.BPM, blue("speed"), state.Tempo)

	fmt.Fprintln(ap.uiWriter, "channel  note  instr  vol  pan")
	n := ap.ctx.NumChannels()
	if n > 8 {
		n = 8
	}
	for i := 0; i < n; i++ {
		nd, ok := ap.ctx.NoteDataFor(i)
		if !ok {
			continue
		}
		marker := "   "
		if i == ap.selectedChannel {
			marker = ">>>"
		}
		mute := " "
		if nd.Muted {
			mute = "M"
		}
		fmt.Fprintf(ap.uiWriter, "%s %s%d  %s  %s  %s  %s\n",
			marker, mute, i, white("%3d", nd.Note), cyan("%3d", nd.Instrument), magenta("%2d", nd.Volume), yellow("%3d", nd.Panning))
	}

	fmt.Fprint(ap.uiWriter, escape+fmt.Sprintf("%dF", n+2))
}
