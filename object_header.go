package blf

import (
	"github.com/vblf/blfdecode/internal/bytesreader"

	"github.com/lunixbochs/struc"
)

// tsResolution is the resolution a record's object_timestamp is encoded in,
// taken from bits of the object header's flags field.
type tsResolution uint8

const (
	tsResolutionUnknown tsResolution = 0
	tsResolution10us    tsResolution = 1
	tsResolution1ns     tsResolution = 2
)

// objectHeader is the unified view of the three on-disk LogObjectHeader
// variants (v1/v2/v3), selected by the containing blockHeader's HeaderType.
type objectHeader struct {
	Flags           uint32
	ObjectTimestamp uint64
}

func (h objectHeader) resolution() tsResolution {
	switch h.Flags {
	case 1:
		return tsResolution10us
	case 2:
		return tsResolution1ns
	default:
		return tsResolutionUnknown
	}
}

type logObjectHeaderV1 struct {
	Flags           uint32 `struc:",little"`
	ClientIndex     uint16 `struc:",little"`
	ObjectVersion   uint16 `struc:",little"`
	ObjectTimestamp uint64 `struc:",little"`
}

const logObjectHeaderV1Size = 16

type logObjectHeaderV2 struct {
	Flags             uint32 `struc:",little"`
	TimestampStatus   uint8
	Reserved          uint8
	ObjectVersion     uint16 `struc:",little"`
	ObjectTimestamp   uint64 `struc:",little"`
	OriginalTimestamp uint64 `struc:",little"`
}

const logObjectHeaderV2Size = 24

type logObjectHeaderV3 struct {
	Flags           uint32 `struc:",little"`
	StaticSize      uint16 `struc:",little"`
	Reserved        [6]byte
	ObjectVersion   uint16 `struc:",little"`
	ObjectTimestamp uint64 `struc:",little"`
}

const logObjectHeaderV3Size = 22

// readObjectHeader unpacks the LogObjectHeader variant selected by
// headerType from buf and returns its unified view, along with the number
// of bytes it occupies on disk.
func readObjectHeader(headerType uint16, buf []byte) (objectHeader, int, error) {
	switch headerType {
	case 1:
		if len(buf) < logObjectHeaderV1Size {
			return objectHeader{}, 0, newError(BadFile, "short log object header v1", nil)
		}
		var h logObjectHeaderV1
		if err := struc.Unpack(bytesreader.New(buf[:logObjectHeaderV1Size]), &h); err != nil {
			return objectHeader{}, 0, newError(BadFile, "unpack log object header v1", err)
		}
		return objectHeader{Flags: h.Flags, ObjectTimestamp: h.ObjectTimestamp}, logObjectHeaderV1Size, nil

	case 2:
		if len(buf) < logObjectHeaderV2Size {
			return objectHeader{}, 0, newError(BadFile, "short log object header v2", nil)
		}
		var h logObjectHeaderV2
		if err := struc.Unpack(bytesreader.New(buf[:logObjectHeaderV2Size]), &h); err != nil {
			return objectHeader{}, 0, newError(BadFile, "unpack log object header v2", err)
		}
		// The reference implementation's endian-fixup assigns
		// OriginalTimestamp from ObjectTimestamp rather than from itself,
		// making OriginalTimestamp effectively dead. Preserved here for
		// parity; downstream code never reads it.
		_ = h.OriginalTimestamp
		return objectHeader{Flags: h.Flags, ObjectTimestamp: h.ObjectTimestamp}, logObjectHeaderV2Size, nil

	case 3:
		if len(buf) < logObjectHeaderV3Size {
			return objectHeader{}, 0, newError(BadFile, "short log object header v3", nil)
		}
		var h logObjectHeaderV3
		if err := struc.Unpack(bytesreader.New(buf[:logObjectHeaderV3Size]), &h); err != nil {
			return objectHeader{}, 0, newError(BadFile, "unpack log object header v3", err)
		}
		return objectHeader{Flags: h.Flags, ObjectTimestamp: h.ObjectTimestamp}, logObjectHeaderV3Size, nil

	default:
		return objectHeader{}, 0, newErrorf(Unsupported, nil, "unsupported block header type %d", headerType)
	}
}
