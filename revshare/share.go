package revshare

import "encoding/binary"

const holderRecordSize = 34 // identity(32) + share_bps(2)

// putHolder writes h into a holderRecordSize record: the identity followed
// by the big-endian share.
func putHolder(buf []byte, h Holder) {
	copy(buf[0:32], h.Identity[:])
	binary.BigEndian.PutUint16(buf[32:34], h.ShareBps)
}

func getHolder(buf []byte) Holder {
	var h Holder
	copy(h.Identity[:], buf[0:32])
	h.ShareBps = binary.BigEndian.Uint16(buf[32:34])
	return h
}
