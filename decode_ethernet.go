package blf

import (
	"github.com/vblf/blfdecode/internal/bytesreader"
	"encoding/binary"
	"fmt"

	"github.com/lunixbochs/struc"

	"github.com/vblf/blfdecode/internal/exportedpdu"
)

type ethernetFrameHeader struct {
	Channel       uint16 `struc:",little"`
	Direction     uint16 `struc:",little"`
	EthType       uint16 `struc:",little"`
	TPID          uint16 `struc:",little"`
	TCI           uint16 `struc:",little"`
	PayloadLength uint16 `struc:",little"`
	DstAddr       [6]byte
	SrcAddr       [6]byte
}

const ethernetFrameHeaderSize = 24

type ethernetFrameHeaderEx struct {
	StructLength   uint16 `struc:",little"`
	Flags          uint16 `struc:",little"`
	Channel        uint16 `struc:",little"`
	HWChannel      uint16 `struc:",little"`
	FrameDuration  uint64 `struc:",little"`
	FrameChecksum  uint32 `struc:",little"`
	Direction      uint16 `struc:",little"`
	FrameLength    uint16 `struc:",little"`
	FrameHandle    uint32 `struc:",little"`
	Error          uint32 `struc:",little"`
}

const ethernetFrameHeaderExSize = 32

// directionFromCode maps the per-protocol RX/TX/TX_REQUEST direction code to
// the EPB-style Direction option (spec.md §4.7.10). 0 is treated as RX.
func directionFromCode(code uint16) Direction {
	switch code {
	case 0:
		return DirectionIn
	case 1, 2:
		return DirectionOut
	default:
		return DirectionUnknown
	}
}

func (d *demux) decodeEthernetFrame(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	if err := requirePrecondition(objectLength, dataStart, blockStart, ethernetFrameHeaderSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, ethernetFrameHeaderSize)
	if err != nil {
		return nil, err
	}
	var h ethernetFrameHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack ethernet frame header", err)
	}

	payload, err := d.readPayload(dataStart+ethernetFrameHeaderSize, int(h.PayloadLength))
	if err != nil {
		return nil, err
	}

	hasVLAN := h.TPID != 0 && h.TCI != 0
	headerLen := 14
	if hasVLAN {
		headerLen = 18
	}
	hdr := make([]byte, headerLen)
	copy(hdr[0:6], h.DstAddr[:])
	copy(hdr[6:12], h.SrcAddr[:])
	if hasVLAN {
		binary.BigEndian.PutUint16(hdr[12:14], h.TPID)
		binary.BigEndian.PutUint16(hdr[14:16], h.TCI)
		binary.BigEndian.PutUint16(hdr[16:18], h.EthType)
	} else {
		binary.BigEndian.PutUint16(hdr[12:14], h.EthType)
	}
	frame := d.buildFrame(hdr, payload)

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapEthernet, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(len(frame)), frame)
	rec.Direction = directionFromCode(h.Direction)
	return &rec, nil
}

func (d *demux) decodeEthernetFrameEx(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	if err := requirePrecondition(objectLength, dataStart, blockStart, ethernetFrameHeaderExSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, ethernetFrameHeaderExSize)
	if err != nil {
		return nil, err
	}
	var h ethernetFrameHeaderEx
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack ethernet frame header ex", err)
	}

	remaining := objectLength - (dataStart - blockStart) - ethernetFrameHeaderExSize
	if int64(h.FrameLength) > remaining {
		return nil, newError(BadFile, "ETHERNET_FRAME_EX: frame_length exceeds remaining object bytes", nil)
	}

	payload, err := d.readPayload(dataStart+ethernetFrameHeaderExSize, int(h.FrameLength))
	if err != nil {
		return nil, err
	}

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapEthernet, uint32(h.Channel), uint32(h.HWChannel), uint32(len(payload)), uint32(len(payload)), payload)
	rec.Direction = directionFromCode(h.Direction)
	hw := uint32(h.HWChannel)
	rec.PktQueue = &hw
	if h.FrameDuration != 0 {
		dur := h.FrameDuration
		rec.FrameDurationNS = &dur
	}
	return &rec, nil
}

type ethernetStatusHeader struct {
	Channel         uint16 `struc:",little"`
	Flags           uint16 `struc:",little"`
	LinkStatus      uint8
	EthernetPhy     uint8
	Duplex          uint8
	MDI             uint8
	Connector       uint8
	ClockMode       uint8
	Pairs           uint8
	HardwareChannel uint8
	Bitrate         uint32 `struc:",little"`
}

const ethernetStatusHeaderSize = 16

// ethStatusHWChannelValid is the flags bit marking hardwareChannel as
// meaningful (spec.md's "HW channel valid" flag).
const ethStatusHWChannelValid = 0x0001

func (d *demux) decodeEthernetStatus(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	if err := requirePrecondition(objectLength, dataStart, blockStart, ethernetStatusHeaderSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, ethernetStatusHeaderSize)
	if err != nil {
		return nil, err
	}
	var h ethernetStatusHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack ethernet status header", err)
	}

	packed := make([]byte, 16)
	binary.BigEndian.PutUint16(packed[0:2], h.Channel)
	binary.BigEndian.PutUint16(packed[2:4], h.Flags)
	packed[4] = h.LinkStatus
	packed[5] = h.EthernetPhy
	packed[6] = h.Duplex
	packed[7] = h.MDI
	packed[8] = h.Connector
	packed[9] = h.ClockMode
	packed[10] = h.Pairs
	packed[11] = h.HardwareChannel
	binary.BigEndian.PutUint32(packed[12:16], h.Bitrate)

	payload := exportedpdu.New("blf-ethernetstatus-obj").Wrap(packed)

	name := ifaceStatusName(h.Channel, uint16(h.HardwareChannel))
	id := d.em.registry.lookup(EncapUpperPDU, uint32(h.Channel), uint32(h.HardwareChannel), name)

	sec, nsec, rel := d.em.resolveTimestamp(oh.Flags, oh.ObjectTimestamp)
	rec := PacketRecord{
		VirtOffset:    startOfLastObj,
		TimestampSec:  sec,
		TimestampNsec: nsec,
		RelativeNS:    rel,
		CaptureLen:    uint32(len(payload)),
		WireLen:       uint32(len(payload)),
		Encap:         EncapUpperPDU,
		InterfaceID:   id,
		Payload:       payload,
	}
	if h.Flags&ethStatusHWChannelValid == ethStatusHWChannelValid {
		hw := uint32(h.HardwareChannel)
		rec.PktQueue = &hw
	}
	return &rec, nil
}

func ifaceStatusName(channel, hwChannel uint16) string {
	return fmt.Sprintf("STATUS-ETH-%d-%d", channel, hwChannel)
}
