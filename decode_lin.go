package blf

import (
	"github.com/vblf/blfdecode/internal/bytesreader"

	"github.com/lunixbochs/struc"
)

// linMessageHeader is a best-effort reconstruction of LIN_MESSAGE's on-disk
// layout: channel, dir, dlc, id and crc are the fields blf.c actually reads;
// their exact byte offsets aren't verifiable without the original header, so
// this places them in usage order.
type linMessageHeader struct {
	Channel uint16 `struc:",little"`
	Dir     uint8
	DLC     uint8
	ID      uint8
	Data    [8]byte
	CRC     uint16 `struc:",little"`
}

const linMessageHeaderSize = 15

func (d *demux) decodeLINMessage(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	if err := requirePrecondition(objectLength, dataStart, blockStart, linMessageHeaderSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, linMessageHeaderSize)
	if err != nil {
		return nil, err
	}
	var h linMessageHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack lin message header", err)
	}

	dlc := h.DLC & 0x0f
	id := h.ID & 0x3f
	payloadLen := dlc
	if payloadLen > 8 {
		payloadLen = 8
	}

	var hdr [8]byte
	hdr[0] = 1 // message format rev
	hdr[4] = dlc << 4
	hdr[5] = id
	hdr[6] = byte(h.CRC & 0xff)
	frame := d.buildFrame(hdr[:], h.Data[:payloadLen])

	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapLIN, uint32(h.Channel), hwChannelNA, uint32(len(frame)), uint32(len(frame)), frame)
	rec.Direction = directionFromCode(uint16(h.Dir))
	return &rec, nil
}
