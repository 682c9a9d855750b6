//go:build !xm_bigendian

package xmplayer

import "encoding/binary"

// libxmByteOrder/libxmABIEndian select the wire endianness of the libxm
// compact format at build time, spec.md §4.2/§6: "a build-time flag selects
// little/big endian and load refuses mismatched files". This is the default
// (little-endian) build; libxm_be.go provides the xm_bigendian alternative.
// Grounded on the teacher's own build-tag split for the mixer
// (mixer.go/mixer_arm64.go).
var libxmByteOrder = binary.ByteOrder(binary.LittleEndian)

const libxmABIEndian byte = 0
