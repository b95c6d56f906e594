package blf

import "github.com/vblf/blfdecode/internal/logging"

// Direction is the inbound/outbound tag derived from a record's per-protocol
// direction field, carried as an EPB-style options code (0x0002).
type Direction uint8

const (
	DirectionUnknown Direction = 0
	DirectionIn      Direction = 1
	DirectionOut     Direction = 2
)

// PacketRecord is one decoded, timestamped event. It is always a fresh copy:
// Payload never aliases container cache memory.
type PacketRecord struct {
	// VirtOffset is the virtual offset of the object this record was
	// decoded from (start_of_last_obj), usable as an opaque locator for a
	// later random_read-equivalent call.
	VirtOffset int64

	TimestampSec  uint64
	TimestampNsec uint32
	// RelativeNS is the timestamp measured from the capture's start_offset_ns.
	RelativeNS int64

	CaptureLen uint32
	WireLen    uint32

	Encap       Encap
	InterfaceID int
	Direction   Direction
	// PktQueue is set for record types that carry a hardware queue or
	// hw_channel tag alongside their payload (ETHERNET_FRAME_EX, and
	// ETHERNET_STATUS with HW channel valid); nil for every other type.
	PktQueue *uint32

	// FrameDurationNS is populated for object types that carry a
	// frame-duration-style trailer field (CAN_MESSAGE2, CAN_FD_MESSAGE(_64),
	// ETHERNET_FRAME_EX); nil otherwise.
	FrameDurationNS *uint64

	Payload []byte
}

// emitter carries the state every per-type decoder needs to finish building
// a PacketRecord: the capture's epoch, the interface registry, and logging.
type emitter struct {
	startOffsetNS int64
	registry      *interfaceRegistry
	log           logging.L
	metrics       *Metrics
}

// resolveTimestamp converts a raw object_timestamp plus its resolution flag
// into absolute (sec, nsec) and a capture-relative nanosecond delta. An
// unrecognized resolution is logged and treated as zero.
func (e *emitter) resolveTimestamp(flags uint32, objectTimestamp uint64) (sec uint64, nsec uint32, relNS int64) {
	var totalNS uint64
	switch tsResolution(flags) {
	case tsResolution10us:
		totalNS = objectTimestamp*10000 + uint64(e.startOffsetNS)
	case tsResolution1ns:
		totalNS = objectTimestamp + uint64(e.startOffsetNS)
	default:
		e.log.Warnf("blf: object has unrecognized timestamp resolution flags=%d, treating as zero", flags)
		totalNS = 0
	}
	sec = totalNS / 1e9
	nsec = uint32(totalNS % 1e9)
	relNS = int64(totalNS) - e.startOffsetNS
	return sec, nsec, relNS
}

// emit finishes a record: resolves the timestamp, looks up the interface id,
// and fills in the common fields. payload must already be a fresh copy.
func (e *emitter) emit(virtOffset int64, flags uint32, objectTimestamp uint64, encap Encap, channel, hwChannel uint32, captureLen, wireLen uint32, payload []byte) PacketRecord {
	sec, nsec, rel := e.resolveTimestamp(flags, objectTimestamp)
	id := e.registry.lookup(encap, channel, hwChannel, "")
	return PacketRecord{
		VirtOffset:    virtOffset,
		TimestampSec:  sec,
		TimestampNsec: nsec,
		RelativeNS:    rel,
		CaptureLen:    captureLen,
		WireLen:       wireLen,
		Encap:         encap,
		InterfaceID:   id,
		Payload:       payload,
	}
}
