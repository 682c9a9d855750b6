// Package xmplayer is a deterministic, real-time-safe playback engine for
// FastTracker II Extended Module (.xm) files.
//
// A Context is created once from a parsed module (either raw .xm bytes or
// the compact libxm dump) and then driven entirely through GenerateSamples:
// the engine performs no allocation, I/O or blocking once playback has
// started, and a Context is owned by exactly one goroutine at a time.
package xmplayer
