package blf

import (
	"github.com/vblf/blfdecode/internal/bytesreader"

	"github.com/lunixbochs/struc"
)

const (
	flexRayDataFrame    = 0x01
	flexRayChannelB     = 0x80
	flexRayPPI          = 0x20
	flexRaySFI          = 0x10
	flexRayNFI          = 0x08
	flexRaySTFI         = 0x04
)

// packFlexRayMeasurementHeader builds the 7-byte measurement header BLF's
// FlexRay object types share: a channel/frame flag byte, an always-zero
// error-flags byte, then a packed frame header carrying the frame id, PPI
// /SFI/NFI/STFI status bits, length, header CRC and cycle/mux, per
// spec.md §5's bit layout.
func packFlexRayMeasurementHeader(channelB bool, ppi, sfi, nfiSet, stfi bool, frameID uint16, length uint8, headerCRC uint16, cycleOrMux uint8) [7]byte {
	var out [7]byte
	out[0] = flexRayDataFrame
	if channelB {
		out[0] |= flexRayChannelB
	}
	out[1] = 0

	out[2] = byte((0x0700 & frameID) >> 8)
	if ppi {
		out[2] |= flexRayPPI
	}
	if sfi {
		out[2] |= flexRaySFI
	}
	if !nfiSet {
		// NFI is inverted: the bit is set when the null-frame condition is
		// NOT present.
		out[2] |= flexRayNFI
	}
	if stfi {
		out[2] |= flexRaySTFI
	}

	out[3] = byte(0x00ff & frameID)
	out[4] = (0xfe & length) | byte((headerCRC&0x0400)>>10)
	out[5] = byte((0x03fc & headerCRC) >> 2)
	out[6] = byte((0x0003&headerCRC)<<6) | (0x3f & cycleOrMux)
	return out
}

func clampFlexRayPayload(objectLength, dataStart, blockStart int64, headerSize int, requested uint16) uint16 {
	remaining := objectLength - (dataStart - blockStart) - int64(headerSize)
	if remaining < 0 {
		remaining = 0
	}
	if int64(requested) > remaining {
		return uint16(remaining)
	}
	return requested
}

type flexRayDataHeader struct {
	Channel   uint16 `struc:",little"`
	Len       uint8
	Dir       uint8
	MessageID uint16 `struc:",little"`
	CRC       uint16 `struc:",little"`
	Mux       uint8
	Reserved1 uint8
	Reserved2 uint16 `struc:",little"`
}

type flexRayMessageHeader struct {
	Channel      uint16 `struc:",little"`
	Length       uint8
	Dir          uint8
	Cycle        uint8
	Reserved0    uint8
	FPGATick     uint32 `struc:",little"`
	FPGATickOverflow uint32 `struc:",little"`
	ClientIndex  uint32 `struc:",little"`
	ClusterTime  uint32 `struc:",little"`
	FrameID      uint16 `struc:",little"`
	HeaderCRC    uint16 `struc:",little"`
	FrameState   uint16 `struc:",little"`
	Reserved1    uint16 `struc:",little"`
}

const (
	flexRayMessageStatePPI  = 0x0008
	flexRayMessageStateSFI  = 0x0004
	flexRayMessageStateNFI  = 0x0001
	flexRayMessageStateSTFI = 0x0002
)

type flexRayRcvMessageHeader struct {
	Channel            uint16 `struc:",little"`
	Version            uint16 `struc:",little"`
	ChannelMask        uint16 `struc:",little"`
	Dir                uint16 `struc:",little"`
	ClientIndex        uint32 `struc:",little"`
	ClusterNo          uint32 `struc:",little"`
	FrameID            uint16 `struc:",little"`
	HeaderCRC1         uint16 `struc:",little"`
	HeaderCRC2         uint16 `struc:",little"`
	PayloadLength      uint16 `struc:",little"`
	PayloadLengthValid uint16 `struc:",little"`
	Cycle              uint16 `struc:",little"`
	Tag                uint32 `struc:",little"`
	Data               uint32 `struc:",little"`
	FrameFlags         uint32 `struc:",little"`
	AppParameter       uint32 `struc:",little"`
}

const (
	flexRayRcvMsgChannelMaskA = 0x0001

	flexRayRcvMsgDataFlagPayloadPream = 0x0004
	flexRayRcvMsgDataFlagSync         = 0x0002
	flexRayRcvMsgDataFlagNullFrame    = 0x0001
	flexRayRcvMsgDataFlagStartup      = 0x0008
)

func (d *demux) decodeFlexRay(t objectType, oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	switch t {
	case objTypeFlexRayData:
		return d.decodeFlexRayData(oh, startOfLastObj, blockStart, dataStart, objectLength)
	case objTypeFlexRayMessage:
		return d.decodeFlexRayMessage(oh, startOfLastObj, blockStart, dataStart, objectLength)
	default:
		return d.decodeFlexRayRcvMessage(oh, startOfLastObj, blockStart, dataStart, objectLength, t == objTypeFlexRayRcvMessageEx)
	}
}

func (d *demux) decodeFlexRayData(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	headerSize, _ := struc.Sizeof(&flexRayDataHeader{})
	if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, headerSize)
	if err != nil {
		return nil, err
	}
	var h flexRayDataHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack flexray data header", err)
	}

	validLen := clampFlexRayPayload(objectLength, dataStart, blockStart, headerSize, uint16(h.Len))
	payload, err := d.readPayload(dataStart+int64(headerSize), int(validLen))
	if err != nil {
		return nil, err
	}

	// FLEXRAY_DATA carries no frame-state field to derive PPI from; blf.c
	// unconditionally sets it for this object type.
	measHdr := packFlexRayMeasurementHeader(h.Channel != 0, true, false, true, false, h.MessageID, h.Len, h.CRC, h.Mux)
	frame := d.buildFrame(measHdr[:], payload)

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapFlexRay, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(7+h.Len), frame)
	rec.Direction = directionFromCode(uint16(h.Dir))
	return &rec, nil
}

func (d *demux) decodeFlexRayMessage(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	headerSize, _ := struc.Sizeof(&flexRayMessageHeader{})
	if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, headerSize)
	if err != nil {
		return nil, err
	}
	var h flexRayMessageHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack flexray message header", err)
	}

	validLen := clampFlexRayPayload(objectLength, dataStart, blockStart, headerSize, uint16(h.Length))
	payload, err := d.readPayload(dataStart+int64(headerSize), int(validLen))
	if err != nil {
		return nil, err
	}

	ppi := h.FrameState&flexRayMessageStatePPI == flexRayMessageStatePPI
	sfi := h.FrameState&flexRayMessageStateSFI == flexRayMessageStateSFI
	nfiSet := h.FrameState&flexRayMessageStateNFI == flexRayMessageStateNFI
	stfi := h.FrameState&flexRayMessageStateSTFI == flexRayMessageStateSTFI

	measHdr := packFlexRayMeasurementHeader(h.Channel != 0, ppi, sfi, nfiSet, stfi, h.FrameID, h.Length, h.HeaderCRC, h.Cycle)
	frame := d.buildFrame(measHdr[:], payload)

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapFlexRay, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(7+h.Length), frame)
	rec.Direction = directionFromCode(uint16(h.Dir))
	return &rec, nil
}

func (d *demux) decodeFlexRayRcvMessage(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64, ext bool) (*PacketRecord, error) {
	baseSize, _ := struc.Sizeof(&flexRayRcvMessageHeader{})
	headerSize := baseSize
	if ext {
		headerSize += 40
	}
	if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, baseSize)
	if err != nil {
		return nil, err
	}
	var h flexRayRcvMessageHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack flexray rcv message header", err)
	}
	dir := h.Dir
	cycle := h.Cycle
	if !ext {
		dir &= 0xff
		cycle &= 0xff
	}

	validLen := clampFlexRayPayload(objectLength, dataStart, blockStart, headerSize, h.PayloadLengthValid)
	payload, err := d.readPayload(dataStart+int64(headerSize), int(validLen))
	if err != nil {
		return nil, err
	}

	ppi := h.Data&flexRayRcvMsgDataFlagPayloadPream == flexRayRcvMsgDataFlagPayloadPream
	sfi := h.Data&flexRayRcvMsgDataFlagSync == flexRayRcvMsgDataFlagSync
	nfiSet := h.Data&flexRayRcvMsgDataFlagNullFrame == flexRayRcvMsgDataFlagNullFrame
	stfi := h.Data&flexRayRcvMsgDataFlagStartup == flexRayRcvMsgDataFlagStartup

	channelB := h.ChannelMask != flexRayRcvMsgChannelMaskA
	measHdr := packFlexRayMeasurementHeader(channelB, ppi, sfi, nfiSet, stfi, h.FrameID, uint8(h.PayloadLength), h.HeaderCRC1, uint8(cycle))
	frame := d.buildFrame(measHdr[:], payload)

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapFlexRay, uint32(h.ChannelMask), hwChannelNA, uint32(len(frame)), uint32(7)+uint32(h.PayloadLength), frame)
	rec.Direction = directionFromCode(dir)
	return &rec, nil
}
