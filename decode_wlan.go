package blf

import (
	"github.com/vblf/blfdecode/internal/bytesreader"

	"github.com/lunixbochs/struc"
)

type wlanFrameHeader struct {
	Channel        uint16 `struc:",little"`
	Flags          uint16 `struc:",little"`
	SignalStrength uint16 `struc:",little"`
	SignalQuality  uint16 `struc:",little"`
	FrameLength    uint16 `struc:",little"`
	Direction      uint8
	Reserved       uint8
}

const wlanFrameHeaderSize = 12

func (d *demux) decodeWLANFrame(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	if err := requirePrecondition(objectLength, dataStart, blockStart, wlanFrameHeaderSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, wlanFrameHeaderSize)
	if err != nil {
		return nil, err
	}
	var h wlanFrameHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack wlan frame header", err)
	}

	remaining := objectLength - (dataStart - blockStart) - wlanFrameHeaderSize
	if int64(h.FrameLength) > remaining {
		return nil, newError(BadFile, "WLAN_FRAME: frame_length exceeds remaining object bytes", nil)
	}

	payload, err := d.readPayload(dataStart+wlanFrameHeaderSize, int(h.FrameLength))
	if err != nil {
		return nil, err
	}

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapWLAN, uint32(h.Channel), hwChannelNA, uint32(len(payload)), uint32(len(payload)), payload)
	rec.Direction = directionFromCode(uint16(h.Direction))
	return &rec, nil
}
