package blf

import (
	"fmt"

	"github.com/vblf/blfdecode/internal/logging"
)

// Encap is the link-layer encapsulation tag carried by a PacketRecord and by
// every interface the registry creates.
type Encap uint32

const (
	EncapEthernet Encap = iota
	EncapWLAN
	EncapSocketCAN
	EncapFlexRay
	EncapLIN
	// EncapUpperPDU tags records synthesized as an "exported PDU" wrapper
	// around text or status payloads rather than a raw link-layer frame.
	EncapUpperPDU
	// encapUnknown is the sentinel used when an APP_TEXT CHANNEL record's
	// reserved byte does not map to a known encapsulation.
	encapUnknown Encap = 0xFFFFFFFF
	// encapPerPacket tags a file whose interfaces span more than one
	// encapsulation; it is never attached to a record, only stored in
	// Session's file-wide encapsulation tag.
	encapPerPacket Encap = 0xFFFFFFFE
)

func (e Encap) prefix() string {
	switch e {
	case EncapEthernet:
		return "ETH"
	case EncapWLAN:
		return "WLAN"
	case EncapSocketCAN:
		return "CAN"
	case EncapFlexRay:
		return "FR"
	case EncapLIN:
		return "LIN"
	default:
		return "ENCAP"
	}
}

// hwChannelNA is the sentinel hw_channel value meaning "not applicable".
const hwChannelNA = 0xFFFF

// InterfaceDescriptor is a lazily created interface published to the host
// the first time the registry sees a given (encap, channel, hw_channel).
type InterfaceDescriptor struct {
	ID         int
	Encap      Encap
	Channel    uint32
	HWChannel  uint32
	Name       string
	TSResolutionNS uint64
	SnapLen    uint32
}

const (
	ifaceTSResolutionNS = 1 // advertised nanosecond resolution
	ifaceMaxSnapLen     = 262144
)

type ifaceKey uint64

func makeIfaceKey(encap Encap, channel, hwChannel uint32) ifaceKey {
	return ifaceKey(uint64(encap)<<32 | uint64(hwChannel)<<16 | uint64(channel))
}

// interfaceRegistry maps (encap, channel, hw_channel) to a stable,
// monotonically assigned interface id, publishing a descriptor to an
// optional observer the first time each key is seen.
type interfaceRegistry struct {
	byKey    map[ifaceKey]*InterfaceDescriptor
	ordered  []*InterfaceDescriptor
	observer func(InterfaceDescriptor)
	log      logging.L

	fileEncap    Encap
	fileEncapSet bool
}

func newInterfaceRegistry(log logging.L, observer func(InterfaceDescriptor)) *interfaceRegistry {
	return &interfaceRegistry{
		byKey:    make(map[ifaceKey]*InterfaceDescriptor),
		observer: observer,
		log:      logging.Must(log),
	}
}

// lookup returns the interface id for (encap, channel, hwChannel), creating
// and publishing a new descriptor on first reference. name, if non-empty,
// overrides the synthesized default name (used by APP_TEXT CHANNEL records).
func (r *interfaceRegistry) lookup(encap Encap, channel, hwChannel uint32, name string) int {
	key := makeIfaceKey(encap, channel, hwChannel)
	if d, ok := r.byKey[key]; ok {
		if name != "" && d.Name != name {
			d.Name = name
		}
		return d.ID
	}

	if name == "" {
		name = r.defaultName(encap, channel, hwChannel)
	}

	d := &InterfaceDescriptor{
		ID:             len(r.ordered),
		Encap:          encap,
		Channel:        channel,
		HWChannel:      hwChannel,
		Name:           name,
		TSResolutionNS: ifaceTSResolutionNS,
		SnapLen:        ifaceMaxSnapLen,
	}
	r.byKey[key] = d
	r.ordered = append(r.ordered, d)

	if !r.fileEncapSet {
		r.fileEncap = encap
		r.fileEncapSet = true
	} else if r.fileEncap != encap {
		r.fileEncap = encapPerPacket
	}

	r.log.Debugf("blf: created interface %d: %s (encap=%d channel=%d hw=%d)", d.ID, d.Name, encap, channel, hwChannel)
	if r.observer != nil {
		r.observer(*d)
	}
	return d.ID
}

func (r *interfaceRegistry) defaultName(encap Encap, channel, hwChannel uint32) string {
	prefix := encap.prefix()
	if encap == encapUnknown {
		return fmt.Sprintf("ENCAP_%d-%d", uint32(encap), channel)
	}
	if encap == EncapEthernet && hwChannel != hwChannelNA {
		return fmt.Sprintf("%s-%d-%d", prefix, channel, hwChannel)
	}
	return fmt.Sprintf("%s-%d", prefix, channel)
}

// interfaces returns every descriptor created so far, in creation order.
func (r *interfaceRegistry) interfaces() []InterfaceDescriptor {
	out := make([]InterfaceDescriptor, len(r.ordered))
	for i, d := range r.ordered {
		out[i] = *d
	}
	return out
}

// appTextEncap maps the bus-type byte (bits 16-23) of an APP_TEXT CHANNEL
// record's reserved1 word to an Encap, per spec.md's CAN/FlexRay/LIN/Ethernet/WLAN
// enumeration; anything else yields the "unknown" sentinel.
func appTextEncap(code uint32) Encap {
	switch code {
	case 0:
		return EncapSocketCAN
	case 1:
		return EncapFlexRay
	case 2:
		return EncapLIN
	case 3:
		return EncapEthernet
	case 4:
		return EncapWLAN
	default:
		return encapUnknown
	}
}
