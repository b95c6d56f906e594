package blf

import (
	"io"

	"github.com/vblf/blfdecode/internal/bufferpool"
	"github.com/vblf/blfdecode/internal/logging"
)

// demux turns the virtual byte stream into a sequence of PacketRecords. It
// holds the APP_TEXT METADATA continuation state, which can span several
// objects. The sequential cursor lives in Session; each record's locator
// (the virtual offset of the object it came from) is its VirtOffset.
type demux struct {
	v    *virtualReader
	em   *emitter
	log  logging.L
	pool bufferpool.Pool

	metadataBuf   *bufferpool.Buffer
	metadataStart int64
	metadataOpen  bool
}

func newDemux(v *virtualReader, em *emitter, log logging.L) *demux {
	return &demux{v: v, em: em, log: logging.Must(log)}
}

// buildFrame assembles parts back-to-back in a pooled scratch buffer and
// returns an owned copy, safe to hand to a PacketRecord.
func (d *demux) buildFrame(parts ...[]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	buf := d.pool.Get(total)
	defer buf.Release()
	for _, p := range parts {
		buf.Write(p)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}

// errEndOfStream is returned (wrapped) when a clean end-of-file is reached
// at an object boundary.
var errEndOfStream = newError(ShortRead, "end of stream", io.EOF)

// next decodes objects starting at virt until one produces a record (or the
// stream/file ends), returning the record (whose VirtOffset is its locator)
// and the virtual offset the caller should resume from.
func (d *demux) next(virt int64) (*PacketRecord, int64, error) {
	for {
		bh, startVirt, headerBuf, ok, err := d.readBlockHeader(virt)
		if err != nil {
			return nil, virt, err
		}
		if !ok {
			return nil, virt, errEndOfStream
		}
		if bh.Magic != blockMagic {
			virt++
			continue
		}

		startOfLastObj := startVirt
		nextVirt := startVirt + stepSize(bh)

		oh, ohSize, err := readObjectHeader(bh.HeaderType, headerBuf[blockHeaderSize:])
		if err != nil {
			return nil, virt, err
		}
		// Per spec.md §4.6 step 3, the object header must fit inside
		// [block_start+sizeof(BlockHeader), block_start+header_length); the
		// payload then begins at header_length, not at the header variant's
		// nominal size, since a writer may legally pad between the two.
		if int64(bh.HeaderLength) < int64(blockHeaderSize)+int64(ohSize) {
			return nil, virt, newErrorf(BadFile, nil, "object at offset %d declares header_length %d too small for its header_type %d object header", startVirt, bh.HeaderLength, bh.HeaderType)
		}
		dataStart := startVirt + int64(bh.HeaderLength)
		blockStart := startVirt
		objType := objectType(bh.ObjectType)

		if objType == objTypeLogContainer {
			return nil, virt, newError(Unsupported, "nested LOG_CONTAINER", nil)
		}

		if objType != objTypeAppText && d.metadataOpen {
			d.resetMetadata()
		}

		rec, err := d.dispatch(objType, oh, startOfLastObj, blockStart, dataStart, int64(bh.ObjectLength))
		if err != nil {
			return nil, virt, err
		}
		if rec == nil {
			// Either an unknown type, a no-op (APP_TEXT CHANNEL), or an
			// in-progress METADATA continuation: advance and keep scanning.
			virt = nextVirt
			continue
		}
		return rec, nextVirt, nil
	}
}

// readBlockHeader reads the blockHeader and, when its magic matches, enough
// trailing bytes to cover the largest LogObjectHeader variant. It returns ok=false on a clean short read at a fresh object
// boundary (end of stream); any other short read is BadFile, matching the
// precondition in spec.md §4.6 step 3.
func (d *demux) readBlockHeader(virt int64) (blockHeader, int64, []byte, bool, error) {
	probe := make([]byte, blockHeaderSize)
	if err := d.v.readAt(virt, blockHeaderSize, probe); err != nil {
		if IsKind(err, ShortRead) {
			return blockHeader{}, 0, nil, false, nil
		}
		return blockHeader{}, 0, nil, false, err
	}
	bh, err := unpackBlockHeader(probe)
	if err != nil {
		return blockHeader{}, 0, nil, false, err
	}
	if bh.Magic != blockMagic {
		return bh, virt, probe, true, nil
	}

	want := blockHeaderSize + maxObjectHeaderSize
	full := make([]byte, want)
	if err := d.v.readAt(virt, want, full); err != nil {
		// Short read here: the object header itself doesn't fit before EOF.
		return blockHeader{}, 0, nil, false, newError(BadFile, "log object header truncated at end of stream", err)
	}
	return bh, virt, full, true, nil
}

const maxObjectHeaderSize = logObjectHeaderV2Size // the largest of the three variants

func (d *demux) resetMetadata() {
	if d.metadataBuf != nil {
		d.metadataBuf.Release()
		d.metadataBuf = nil
	}
	d.metadataOpen = false
}

// readPayload fetches n bytes of an object's payload starting at virtual
// offset off, returning a fresh owned slice.
func (d *demux) readPayload(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := d.v.readAt(off, n, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// dispatch decodes one object given its already-parsed common headers.
// blockStart/dataStart/objectLength are all in virtual-offset space.
// A nil *PacketRecord with a nil error means "no record this call, keep
// scanning" (unknown type, CHANNEL directive, or buffered METADATA).
func (d *demux) dispatch(t objectType, oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	d.em.metrics.decoded(t)

	switch t {
	case objTypeEthernetFrame:
		return d.decodeEthernetFrame(oh, startOfLastObj, blockStart, dataStart, objectLength)
	case objTypeEthernetFrameEx:
		return d.decodeEthernetFrameEx(oh, startOfLastObj, blockStart, dataStart, objectLength)
	case objTypeWLANFrame:
		return d.decodeWLANFrame(oh, startOfLastObj, blockStart, dataStart, objectLength)
	case objTypeCANMessage:
		return d.decodeCANMessage(oh, startOfLastObj, blockStart, dataStart, objectLength, false)
	case objTypeCANMessage2:
		return d.decodeCANMessage(oh, startOfLastObj, blockStart, dataStart, objectLength, true)
	case objTypeCANFDMessage:
		return d.decodeCANFDMessage(oh, startOfLastObj, blockStart, dataStart, objectLength, false)
	case objTypeCANFDMessage64:
		return d.decodeCANFDMessage(oh, startOfLastObj, blockStart, dataStart, objectLength, true)
	case objTypeCANError:
		return d.decodeCANError(oh, startOfLastObj, blockStart, dataStart, objectLength, false)
	case objTypeCANErrorExt:
		return d.decodeCANErrorExt(oh, startOfLastObj, blockStart, dataStart, objectLength, false)
	case objTypeCANFDError64:
		return d.decodeCANErrorExt(oh, startOfLastObj, blockStart, dataStart, objectLength, true)
	case objTypeFlexRayData, objTypeFlexRayMessage, objTypeFlexRayRcvMessage, objTypeFlexRayRcvMessageEx:
		return d.decodeFlexRay(t, oh, startOfLastObj, blockStart, dataStart, objectLength)
	case objTypeLINMessage:
		return d.decodeLINMessage(oh, startOfLastObj, blockStart, dataStart, objectLength)
	case objTypeAppText:
		return d.decodeAppText(oh, startOfLastObj, blockStart, dataStart, objectLength)
	case objTypeEthernetStatus:
		return d.decodeEthernetStatus(oh, startOfLastObj, blockStart, dataStart, objectLength)
	default:
		d.log.Debugf("blf: skipping unknown object type %d at virt offset %d", uint32(t), blockStart)
		return nil, nil
	}
}

// requirePrecondition enforces the shared decoder precondition from spec.md
// §4.7: object_length >= (data_start - block_start) + headerSize.
func requirePrecondition(objectLength, dataStart, blockStart int64, headerSize int) error {
	need := (dataStart - blockStart) + int64(headerSize)
	if objectLength < need {
		return newErrorf(BadFile, nil, "object_length %d too small for header of size %d", objectLength, headerSize)
	}
	return nil
}
