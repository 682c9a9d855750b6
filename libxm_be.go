//go:build xm_bigendian

package xmplayer

import "encoding/binary"

// Big-endian counterpart to libxm_le.go, selected with -tags xm_bigendian.
var libxmByteOrder = binary.ByteOrder(binary.BigEndian)

const libxmABIEndian byte = 1
