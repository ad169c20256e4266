package diag

import (
	"github.com/brakeguard/BladeContactSensor/classify"
)

// Wire format: 2 magic bytes, 20 payload bytes, 1 XOR checksum.
// Fixed-size frames keep the firmware encoder allocation-free and let the
// host resynchronize on the magic after line noise.
const (
	frameMagic0 = 0xB5
	frameMagic1 = 0xAD

	payloadLen = 20
	// FrameLen is the size of one encoded record on the wire.
	FrameLen = 2 + payloadLen + 1
)

// Encode serializes a record into the fixed-size wire frame.
func Encode(r Record) [FrameLen]byte {
	var f [FrameLen]byte
	f[0] = frameMagic0
	f[1] = frameMagic1

	p := f[2 : 2+payloadLen]
	p[0] = byte(r.Kind)
	putU32(p[1:], r.Cycle)
	p[5] = byte(r.State)
	putU16(p[6:], r.PeakToPeakMilliV)
	putU16(p[8:], r.MeanMilliV)
	putU16(p[10:], uint16(r.DeltaMilliV))
	putU16(p[12:], r.Timeouts)
	putU16(p[14:], r.Insufficient)
	putU16(p[16:], r.SinkDrops)
	putU16(p[18:], r.Rearms)

	f[FrameLen-1] = xorSum(p)
	return f
}

// Decoder incrementally decodes a byte stream of frames, resynchronizing on
// the magic bytes after corruption.
type Decoder struct {
	buf []byte
	// Dropped counts bytes discarded while searching for a frame start or
	// rejected by the checksum.
	Dropped int
}

// Feed appends stream bytes and returns all complete, valid records.
func (d *Decoder) Feed(p []byte) []Record {
	d.buf = append(d.buf, p...)

	var out []Record
	for {
		// Seek frame start.
		i := 0
		for i < len(d.buf) && d.buf[i] != frameMagic0 {
			i++
		}
		if i > 0 {
			d.Dropped += i
			d.buf = d.buf[i:]
		}
		if len(d.buf) < FrameLen {
			return out
		}
		if d.buf[1] != frameMagic1 {
			d.Dropped++
			d.buf = d.buf[1:]
			continue
		}

		frame := d.buf[:FrameLen]
		payload := frame[2 : 2+payloadLen]
		if xorSum(payload) != frame[FrameLen-1] {
			// Checksum mismatch: discard one byte and rescan, in case the
			// magic happened to appear inside another frame's payload.
			d.Dropped++
			d.buf = d.buf[1:]
			continue
		}

		out = append(out, decodePayload(payload))
		d.buf = d.buf[FrameLen:]
	}
}

func decodePayload(p []byte) Record {
	return Record{
		Kind:             Kind(p[0]),
		Cycle:            getU32(p[1:]),
		State:            classify.State(p[5]),
		PeakToPeakMilliV: getU16(p[6:]),
		MeanMilliV:       getU16(p[8:]),
		DeltaMilliV:      int16(getU16(p[10:])),
		Timeouts:         getU16(p[12:]),
		Insufficient:     getU16(p[14:]),
		SinkDrops:        getU16(p[16:]),
		Rearms:           getU16(p[18:]),
	}
}

func xorSum(p []byte) byte {
	var s byte
	for _, b := range p {
		s ^= b
	}
	return s
}

func putU16(p []byte, v uint16) {
	p[0] = byte(v)
	p[1] = byte(v >> 8)
}

func putU32(p []byte, v uint32) {
	p[0] = byte(v)
	p[1] = byte(v >> 8)
	p[2] = byte(v >> 16)
	p[3] = byte(v >> 24)
}

func getU16(p []byte) uint16 {
	return uint16(p[0]) | uint16(p[1])<<8
}

func getU32(p []byte) uint32 {
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
}
