// Package exportedpdu builds the tag-length-value wrapper BLF uses to hand
// non-link-layer payloads (application text, Ethernet link status) to a
// generic dissector: a dissector name plus optional protocol/info column
// text, followed by the opaque payload.
package exportedpdu

import "encoding/binary"

// Tag identifies one string-valued field in the tag list.
type Tag uint16

const (
	TagDissectorName Tag = 12
	TagProtoName     Tag = 8
	TagColumnInfo    Tag = 20
	tagEndOfOpt      Tag = 0
)

// Builder accumulates tags before finishing with the record's own payload.
type Builder struct {
	tags []byte
}

// New starts a wrapper addressed to the named dissector.
func New(dissectorName string) *Builder {
	b := &Builder{}
	b.addString(TagDissectorName, dissectorName)
	return b
}

// WithColumns attaches the protocol and info column text Wireshark shows
// for records that don't carry their own dissector-native columns.
func (b *Builder) WithColumns(proto, info string) *Builder {
	if proto != "" {
		b.addString(TagProtoName, proto)
	}
	if info != "" {
		b.addString(TagColumnInfo, info)
	}
	return b
}

func (b *Builder) addString(tag Tag, value string) {
	v := pad4([]byte(value))
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], uint16(tag))
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(v)))
	b.tags = append(b.tags, hdr[:]...)
	b.tags = append(b.tags, v...)
}

func pad4(v []byte) []byte {
	rem := len(v) % 4
	if rem == 0 {
		return v
	}
	out := make([]byte, len(v)+(4-rem))
	copy(out, v)
	return out
}

// Wrap finishes the tag list with an end-of-options marker and appends
// payload, returning the complete exported-PDU record bytes.
func (b *Builder) Wrap(payload []byte) []byte {
	var end [4]byte
	binary.BigEndian.PutUint16(end[0:2], uint16(tagEndOfOpt))
	out := make([]byte, 0, len(b.tags)+len(end)+len(payload))
	out = append(out, b.tags...)
	out = append(out, end[:]...)
	out = append(out, payload...)
	return out
}
