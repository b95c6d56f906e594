package blf

import (
	"github.com/vblf/blfdecode/internal/bytesreader"

	"github.com/lunixbochs/struc"
)

// canDLCToLength and canFDDLCToLength translate a 4-bit DLC nibble into a
// payload byte count, per blf.c's can_dlc_to_length / canfd_dlc_to_length
// tables.
var canDLCToLength = [16]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 8, 8, 8, 8, 8, 8, 8}
var canFDDLCToLength = [16]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 12, 16, 20, 24, 32, 48, 64}

const (
	canMessageFlagRTR = 0x0001
	canMessageFlagTX  = 0x0001 << 1

	canFDFlagEDL          = 0x0001
	canFDMessage64FlagEDL = 0x0001
	canFD64FlagRemoteFrame = 0x0010

	canRTRFlag = 0x40000000 // SocketCAN RTR bit in the 32-bit CAN id field
	canErrFlag = 0x20000000 // SocketCAN error-frame bit
	canErrDLC  = 8
)

type canMessageHeader struct {
	Channel uint16 `struc:",little"`
	Flags   uint8
	DLC     uint8
	ID      uint32 `struc:",little"`
	Data    [8]byte
}

type canMessage2Trailer struct {
	FrameLengthNS uint32 `struc:",little"`
	Reserved1     uint16 `struc:",little"`
	Reserved2     uint16 `struc:",little"`
	BitCount      uint16 `struc:",little"`
	Reserved3     [4]byte
}

// canFDMessageHeader is a best-effort reconstruction of CAN_FD_MESSAGE's
// on-disk layout: the fields blf.c actually reads (channel, the EDL flag,
// dlc, validDataBytes, id, frameLength_in_ns, the classic-frame RTR/TX
// flags) are faithful; trailing reserved bytes pad the header to the size
// blf.c's bounds check expects without claiming byte-exact parity with the
// (unavailable) original struct definition.
type canFDMessageHeader struct {
	Channel        uint16 `struc:",little"`
	Flags          uint8
	DLC            uint8
	ID             uint32 `struc:",little"`
	FrameLengthNS  uint32 `struc:",little"`
	CANFDFlags     uint8
	ValidDataBytes uint8
	Reserved       uint16 `struc:",little"`
}

type canFDMessage64Header struct {
	Channel        uint8
	DLC            uint8
	Flags          uint32 `struc:",little"`
	ID             uint32 `struc:",little"`
	FrameLengthNS  uint32 `struc:",little"`
	ValidDataBytes uint8
	Dir            uint8
	Reserved       uint16 `struc:",little"`
}

type canErrorHeader struct {
	Channel uint16 `struc:",little"`
	Length  uint16 `struc:",little"`
}

type canErrorExtHeader struct {
	Channel        uint16 `struc:",little"`
	Length         uint16 `struc:",little"`
	Flags          uint32 `struc:",little"`
	FrameLengthNS  uint32 `struc:",little"`
	ID             uint32 `struc:",little"`
	ErrorCodeExt   uint16 `struc:",little"`
	Reserved       uint16 `struc:",little"`
}

type canFDError64Header struct {
	Flags         uint16 `struc:",little"`
	ErrorCodeExt  uint16 `struc:",little"`
	ExtFlags      uint16 `struc:",little"`
	Channel       uint16 `struc:",little"`
	ID            uint32 `struc:",little"`
	FrameLengthNS uint32 `struc:",little"`
}

const (
	canErrorExtFlagCANCore    = 0x0001
	canErrorExtNotAck         = 0x0001
	canErrorExtTX             = 0x0002

	errProtBit        = 0x01
	errProtForm       = 0x02
	errProtStuff      = 0x03
	errProtLocCRCSeq  = 0x04
	errProtLocAck     = 0x05
	errProtOverload   = 0x06
	errProtUnspec     = 0x00

	errProt = 0x00000400
	errAck  = 0x00000800
)

// socketCANFrame assembles an 8-byte SocketCAN-style header ({id(BE32),
// dlc, 0, 0, 0}) followed by up to 8 payload bytes, per blf.c's
// blf_can_fill_buf_and_rec.
func (d *demux) socketCANFrame(canID uint32, dlc uint8, payload []byte) []byte {
	var hdr [8]byte
	hdr[0] = byte(canID >> 24)
	hdr[1] = byte(canID >> 16)
	hdr[2] = byte(canID >> 8)
	hdr[3] = byte(canID)
	hdr[4] = dlc
	return d.buildFrame(hdr[:], payload)
}

func (d *demux) decodeCANMessage(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64, message2 bool) (*PacketRecord, error) {
	headerSize, _ := struc.Sizeof(&canMessageHeader{})
	if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, headerSize)
	if err != nil {
		return nil, err
	}
	var h canMessageHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack can message header", err)
	}

	dlc := h.DLC & 0x0f
	payloadLen := dlc
	if payloadLen > 8 {
		payloadLen = 8
	}
	canID := h.ID
	if h.Flags&canMessageFlagRTR == canMessageFlagRTR {
		canID |= canRTRFlag
		payloadLen = 0
	}

	frame := d.socketCANFrame(canID, payloadLen, h.Data[:payloadLen])
	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapSocketCAN, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(len(frame)), frame)
	if h.Flags&canMessageFlagTX == canMessageFlagTX {
		rec.Direction = DirectionOut
	} else {
		rec.Direction = DirectionIn
	}

	if message2 {
		trailerSize, _ := struc.Sizeof(&canMessage2Trailer{})
		trailerOff := dataStart + int64(headerSize) + 8
		if err := requirePrecondition(objectLength, trailerOff+int64(trailerSize), blockStart, 0); err != nil {
			return nil, newError(BadFile, "CAN_MESSAGE2: not enough bytes for trailer", nil)
		}
		traw, err := d.readPayload(trailerOff, trailerSize)
		if err != nil {
			return nil, err
		}
		var trailer canMessage2Trailer
		if err := struc.Unpack(bytesreader.New(traw), &trailer); err != nil {
			return nil, newError(BadFile, "unpack can message2 trailer", err)
		}
		if trailer.FrameLengthNS != 0 {
			ns := uint64(trailer.FrameLengthNS)
			rec.FrameDurationNS = &ns
		}
	}

	return &rec, nil
}

func (d *demux) decodeCANFDMessage(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64, is64 bool) (*PacketRecord, error) {
	if is64 {
		return d.decodeCANFDMessage64(oh, startOfLastObj, blockStart, dataStart, objectLength)
	}

	headerSize, _ := struc.Sizeof(&canFDMessageHeader{})
	if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, headerSize)
	if err != nil {
		return nil, err
	}
	var h canFDMessageHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack canfd message header", err)
	}

	dlc := h.DLC & 0x0f
	isFD := h.CANFDFlags&canFDFlagEDL == canFDFlagEDL
	var payloadLen uint8
	if isFD {
		payloadLen = canFDDLCToLength[dlc]
	} else {
		payloadLen = canDLCToLength[dlc]
	}
	if payloadLen > h.ValidDataBytes {
		payloadLen = h.ValidDataBytes
	}

	canID := h.ID
	if !isFD && h.Flags&canMessageFlagRTR == canMessageFlagRTR {
		canID |= canRTRFlag
		payloadLen = 0
	}

	validLen := int64(payloadLen)
	remaining := objectLength - (dataStart - blockStart)
	if validLen > remaining {
		validLen = remaining
		if validLen < 0 {
			validLen = 0
		}
	}

	payload, err := d.readPayload(dataStart+int64(headerSize), int(validLen))
	if err != nil {
		return nil, err
	}

	frame := d.socketCANFrame(canID, payloadLen, payload)
	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapSocketCAN, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(len(frame)), frame)
	if h.Flags&canMessageFlagTX == canMessageFlagTX {
		rec.Direction = DirectionOut
	} else {
		rec.Direction = DirectionIn
	}
	if h.FrameLengthNS != 0 {
		ns := uint64(h.FrameLengthNS)
		rec.FrameDurationNS = &ns
	}
	return &rec, nil
}

func (d *demux) decodeCANFDMessage64(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	headerSize, _ := struc.Sizeof(&canFDMessage64Header{})
	if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, headerSize)
	if err != nil {
		return nil, err
	}
	var h canFDMessage64Header
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack canfd message 64 header", err)
	}

	dlc := h.DLC & 0x0f
	isFD := h.Flags&canFDMessage64FlagEDL == canFDMessage64FlagEDL
	var payloadLen uint8
	if isFD {
		payloadLen = canFDDLCToLength[dlc]
	} else {
		payloadLen = canDLCToLength[dlc]
	}
	if payloadLen > h.ValidDataBytes {
		payloadLen = h.ValidDataBytes
	}

	canID := h.ID
	if !isFD && h.Flags&canFD64FlagRemoteFrame == canFD64FlagRemoteFrame {
		canID |= canRTRFlag
		payloadLen = 0
	}

	// Bytes from dataStart to the end of the object (the CAN-FD header is not
	// subtracted), with no added header-size term; the 32-bit CAN_FD_MESSAGE
	// path uses the same form.
	validLen := int64(payloadLen)
	remaining := objectLength - (dataStart - blockStart)
	if validLen > remaining {
		validLen = remaining
		if validLen < 0 {
			validLen = 0
		}
	}

	payload, err := d.readPayload(dataStart+int64(headerSize), int(validLen))
	if err != nil {
		return nil, err
	}

	frame := d.socketCANFrame(canID, payloadLen, payload)
	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapSocketCAN, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(len(frame)), frame)
	rec.Direction = directionFromCode(uint16(h.Dir))
	if h.FrameLengthNS != 0 {
		ns := uint64(h.FrameLengthNS)
		rec.FrameDurationNS = &ns
	}
	return &rec, nil
}

func (d *demux) decodeCANError(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64, _ bool) (*PacketRecord, error) {
	headerSize, _ := struc.Sizeof(&canErrorHeader{})
	if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, headerSize)
	if err != nil {
		return nil, err
	}
	var h canErrorHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack can error header", err)
	}

	frame := d.socketCANFrame(canErrFlag, canErrDLC, make([]byte, canErrDLC))
	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapSocketCAN, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(len(frame)), frame)
	return &rec, nil
}

// eccToSocketCAN maps the Vector CAN-core ECC code (top 6 bits of
// errorCodeExt) to the SocketCAN protocol-error byte and whether it sets
// PROT, per the table in spec.md §4.7.6.
func eccToSocketCAN(errorCodeExt uint16, frame []byte) (prot bool) {
	switch (errorCodeExt >> 6) & 0x3f {
	case 0: // BIT_ERROR
		frame[10] = errProtBit
		prot = true
	case 1: // FORM_ERROR
		frame[10] = errProtForm
		prot = true
	case 2: // STUFF_ERROR
		frame[10] = errProtStuff
		prot = true
	case 3: // CRC_ERROR
		frame[11] = errProtLocCRCSeq
		prot = true
	case 4: // NACK_ERROR
		frame[11] = errProtLocAck
	case 5: // OVERLOAD
		frame[10] = errProtOverload
		prot = true
	default:
		frame[10] = errProtUnspec
		prot = true
	}
	return prot
}

func (d *demux) decodeCANErrorExt(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64, is64 bool) (*PacketRecord, error) {
	var channel uint32
	var flags, errorCodeExt uint32
	var txBit bool

	if is64 {
		headerSize, _ := struc.Sizeof(&canFDError64Header{})
		if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
			return nil, err
		}
		raw, err := d.readPayload(dataStart, headerSize)
		if err != nil {
			return nil, err
		}
		var h canFDError64Header
		if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
			return nil, newError(BadFile, "unpack canfd error64 header", err)
		}
		channel = uint32(h.Channel)
		flags = uint32(h.Flags)
		errorCodeExt = uint32(h.ErrorCodeExt)
		txBit = uint32(h.ExtFlags)&canErrorExtTX == canErrorExtTX
	} else {
		headerSize, _ := struc.Sizeof(&canErrorExtHeader{})
		if err := requirePrecondition(objectLength, dataStart, blockStart, headerSize); err != nil {
			return nil, err
		}
		raw, err := d.readPayload(dataStart, headerSize)
		if err != nil {
			return nil, err
		}
		var h canErrorExtHeader
		if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
			return nil, newError(BadFile, "unpack can error ext header", err)
		}
		channel = uint32(h.Channel)
		flags = h.Flags
		errorCodeExt = uint32(h.ErrorCodeExt)
		txBit = uint32(h.ErrorCodeExt)&canErrorExtTX == canErrorExtTX
	}

	frame := d.socketCANFrame(canErrFlag, canErrDLC, make([]byte, canErrDLC))

	var errAckBit, errProtBitSet bool
	if flags&canErrorExtFlagCANCore == canErrorExtFlagCANCore {
		errProtBitSet = eccToSocketCAN(uint16(errorCodeExt), frame)
		errAckBit = errAckBit || errorCodeExt&canErrorExtNotAck == 0
		if errAckBit {
			errProtBitSet = false
		}
	}

	canID := uint32(canErrFlag)
	if errProtBitSet {
		canID |= errProt
	}
	if errAckBit {
		canID |= errAck
	}
	frame[0] = byte(canID >> 24)
	frame[1] = byte(canID >> 16)
	frame[2] = byte(canID >> 8)
	frame[3] = byte(canID)

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapSocketCAN, channel, hwChannelNA, uint32(len(frame)), uint32(len(frame)), frame)
	if flags&canErrorExtFlagCANCore == canErrorExtFlagCANCore {
		rec.Direction = directionFromCode(boolToTXCode(txBit))
	}
	return &rec, nil
}

func boolToTXCode(tx bool) uint16 {
	if tx {
		return 1
	}
	return 0
}
