// xmdump parses a .xm or .libxm file and prints a structural trace of what
// the loader read, for debugging loader output. Grounded on the teacher's
// cmd/moddump, which does the same for .mod/.s3m files via SetDumpWriter.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/xm-go/xmplayer"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("xmdump: ")

	if len(os.Args) <= 1 {
		log.Fatal("Missing module filename")
	}

	fname := os.Args[1]
	data, err := os.ReadFile(fname)
	if err != nil {
		log.Fatal(err)
	}

	xmplayer.SetDumpWriter(os.Stdout)

	var loadErr error
	switch strings.ToLower(filepath.Ext(fname)) {
	case ".xm":
		_, loadErr = xmplayer.CreateFromXM(data, 44100)
	case ".libxm":
		_, loadErr = xmplayer.CreateFromLibXM(data, 44100)
	default:
		loadErr = fmt.Errorf("unsupported module %q", fname)
	}
	if loadErr != nil {
		log.Fatal(loadErr)
	}
}
