package blf

import (
	"bytes"
	"strings"

	"github.com/lunixbochs/struc"

	"github.com/vblf/blfdecode/internal/bytesreader"
	"github.com/vblf/blfdecode/internal/exportedpdu"
)

// APP_TEXT source codes. Vector's BLF format numbers these consistently
// across independent readers; not verified against the (absent) original
// header but treated as public format knowledge.
const (
	appTextChannel    = 0
	appTextMetadata   = 1
	appTextComment    = 2
	appTextAttachment = 3
	appTextTraceLine  = 4
)

type appTextHeader struct {
	Source           uint32 `struc:",little"`
	ReservedAppText1 uint32 `struc:",little"`
	TextLength       uint32 `struc:",little"`
	ReservedAppText2 uint32 `struc:",little"`
}

const appTextHeaderSize = 16

func (d *demux) decodeAppText(oh objectHeader, startOfLastObj, blockStart, dataStart, objectLength int64) (*PacketRecord, error) {
	if err := requirePrecondition(objectLength, dataStart, blockStart, appTextHeaderSize); err != nil {
		return nil, err
	}
	raw, err := d.readPayload(dataStart, appTextHeaderSize)
	if err != nil {
		return nil, err
	}
	var h appTextHeader
	if err := struc.Unpack(bytesreader.New(raw), &h); err != nil {
		return nil, newError(BadFile, "unpack apptext header", err)
	}

	if d.metadataOpen && h.Source != appTextMetadata {
		d.resetMetadata()
	}

	remaining := objectLength - (dataStart - blockStart) - appTextHeaderSize
	if int64(h.TextLength) > remaining {
		return nil, newError(BadFile, "APP_TEXT: text_length exceeds remaining object bytes", nil)
	}
	text, err := d.readPayload(dataStart+appTextHeaderSize, int(h.TextLength))
	if err != nil {
		return nil, err
	}

	switch h.Source {
	case appTextChannel:
		return d.decodeAppTextChannel(h, text)
	case appTextMetadata:
		return d.decodeAppTextMetadata(oh, startOfLastObj, h, text)
	case appTextComment, appTextAttachment, appTextTraceLine:
		return d.decodeAppTextSingle(oh, startOfLastObj, h, text)
	default:
		return nil, nil
	}
}

// decodeAppTextChannel registers a named interface without emitting a
// record: "<hint>;<name>;..." where bits 8-15 of reservedAppText1 carry the
// channel number and bits 16-23 the encapsulation code.
func (d *demux) decodeAppTextChannel(h appTextHeader, text []byte) (*PacketRecord, error) {
	tokens := strings.SplitN(string(text), ";", 3)
	if len(tokens) < 2 || tokens[1] == "" {
		return nil, nil
	}
	channel := (h.ReservedAppText1 >> 8) & 0xff
	bustype := (h.ReservedAppText1 >> 16) & 0xff
	encap := appTextEncap(bustype)
	d.em.registry.lookup(encap, channel, hwChannelNA, tokens[1])
	return nil, nil
}

// decodeAppTextMetadata accumulates a run of METADATA objects into one
// exported-PDU text record. While the low 24 bits of reservedAppText1
// exceed this object's textLength, more objects follow; otherwise the run
// closes and one record is emitted for all buffered text.
func (d *demux) decodeAppTextMetadata(oh objectHeader, startOfLastObj int64, h appTextHeader, text []byte) (*PacketRecord, error) {
	if !d.metadataOpen {
		header := exportedpdu.New("data-text-lines").WithColumns("BLF App text", "Metadata").Wrap(nil)
		d.metadataBuf = d.pool.Get(len(header) + int(h.TextLength))
		d.metadataBuf.Write(header)
		d.metadataStart = startOfLastObj
		d.metadataOpen = true
	}
	d.metadataBuf.Write(text)

	totalLen := h.ReservedAppText1 & 0x00ffffff
	if totalLen > h.TextLength {
		// More objects still to come in this run.
		return nil, nil
	}

	payload := make([]byte, d.metadataBuf.Len())
	copy(payload, d.metadataBuf.Bytes())
	rec := d.em.emit(d.metadataStart, oh.Flags, oh.ObjectTimestamp, EncapUpperPDU, 0, hwChannelNA, uint32(len(payload)), uint32(len(payload)), payload)
	d.resetMetadata()
	return &rec, nil
}

// decodeAppTextSingle wraps a COMMENT/ATTACHMENT/TRACELINE record's text as
// its own exported-PDU record. Unlike METADATA, the text is truncated at
// the first embedded NUL byte, matching the original C strlen() semantics.
func (d *demux) decodeAppTextSingle(oh objectHeader, startOfLastObj int64, h appTextHeader, text []byte) (*PacketRecord, error) {
	if idx := bytes.IndexByte(text, 0); idx >= 0 {
		text = text[:idx]
	}

	info := "Comment"
	switch h.Source {
	case appTextAttachment:
		info = "Attachment"
	case appTextTraceLine:
		info = "Trace line"
	}

	payload := exportedpdu.New("data-text-lines").WithColumns("BLF App text", info).Wrap(text)
	rec := d.em.emit(startOfLastObj, oh.Flags, oh.ObjectTimestamp, EncapUpperPDU, 0, hwChannelNA, uint32(len(payload)), uint32(len(payload)), payload)
	return &rec, nil
}
