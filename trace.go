package xmplayer

import (
	"fmt"
	"io"
)

// dumpWriter receives a line-by-line trace of what the loader parses when
// set. Grounded on the teacher's SetDumpWriter (mod.go/s3m.go), used by
// cmd/xmdump the same way the teacher's moddump tool uses theirs.
var dumpWriter io.Writer

// SetDumpWriter directs loader trace output to w. Pass nil to disable.
// Not meant to be called while a Context built from a previous load is
// playing; it only affects subsequent CreateFromXM/CreateFromLibXM calls.
func SetDumpWriter(w io.Writer) {
	dumpWriter = w
}

func dumpf(format string, args ...any) {
	if dumpWriter == nil {
		return
	}
	fmt.Fprintf(dumpWriter, format, args...)
}
