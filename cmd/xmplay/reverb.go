package main

import (
	"fmt"

	"github.com/xm-go/xmplayer/internal/comb"
)

// reverbFromFlag builds a comb.Reverber from the -reverb flag value,
// grounded on the teacher's cmd/internal/config.ReverbFromFlag.
func reverbFromFlag(setting string, sampleRate int) (comb.Reverber, error) {
	decay := float32(0.2)
	delayMs := 150

	switch setting {
	case "none":
		return comb.NewPassThrough(10 * 1024), nil
	case "light":
	case "medium":
		decay, delayMs = 0.3, 250
	case "silly":
		decay, delayMs = 0.5, 2500
	default:
		return nil, fmt.Errorf("unrecognized reverb setting %q", setting)
	}

	return comb.NewCombReverb(10*1024, decay, delayMs, sampleRate), nil
}
