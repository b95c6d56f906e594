package blf

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("InterfaceRegistry", func() {
	var (
		reg     *interfaceRegistry
		seen    []InterfaceDescriptor
		observe func(InterfaceDescriptor)
	)

	BeforeEach(func() {
		seen = nil
		observe = func(d InterfaceDescriptor) { seen = append(seen, d) }
		reg = newInterfaceRegistry(nil, observe)
	})

	Context("a fresh (encap, channel, hw_channel) key", func() {
		It("assigns ids starting at zero, in creation order", func() {
			id0 := reg.lookup(EncapSocketCAN, 1, hwChannelNA, "")
			id1 := reg.lookup(EncapFlexRay, 1, hwChannelNA, "")
			Expect(id0).To(Equal(0))
			Expect(id1).To(Equal(1))
		})

		It("publishes a descriptor to the observer exactly once", func() {
			reg.lookup(EncapSocketCAN, 3, hwChannelNA, "")
			reg.lookup(EncapSocketCAN, 3, hwChannelNA, "")
			Expect(seen).To(HaveLen(1))
			Expect(seen[0].Channel).To(Equal(uint32(3)))
		})

		It("synthesizes a default name from encap and channel", func() {
			reg.lookup(EncapSocketCAN, 2, hwChannelNA, "")
			Expect(seen[0].Name).To(Equal("CAN-2"))
		})

		It("includes the hw channel in an Ethernet interface's default name", func() {
			reg.lookup(EncapEthernet, 0, 5, "")
			Expect(seen[0].Name).To(Equal("ETH-0-5"))
		})
	})

	Context("a repeated key", func() {
		It("returns the same id without publishing again", func() {
			id0 := reg.lookup(EncapLIN, 0, hwChannelNA, "")
			id1 := reg.lookup(EncapLIN, 0, hwChannelNA, "")
			Expect(id1).To(Equal(id0))
			Expect(seen).To(HaveLen(1))
		})

		It("overrides its name when a non-empty name is later supplied", func() {
			reg.lookup(EncapSocketCAN, 4, hwChannelNA, "")
			id := reg.lookup(EncapSocketCAN, 4, hwChannelNA, "PowertrainBus")
			Expect(reg.interfaces()[id].Name).To(Equal("PowertrainBus"))
		})
	})

	Context("interfaces spanning more than one encapsulation", func() {
		It("marks the file's encapsulation as mixed", func() {
			reg.lookup(EncapSocketCAN, 0, hwChannelNA, "")
			reg.lookup(EncapEthernet, 0, hwChannelNA, "")
			Expect(reg.fileEncap).To(Equal(encapPerPacket))
		})
	})
})

var _ = Describe("appTextEncap", func() {
	It("maps every known code", func() {
		Expect(appTextEncap(0)).To(Equal(EncapSocketCAN))
		Expect(appTextEncap(1)).To(Equal(EncapFlexRay))
		Expect(appTextEncap(2)).To(Equal(EncapLIN))
		Expect(appTextEncap(3)).To(Equal(EncapEthernet))
		Expect(appTextEncap(4)).To(Equal(EncapWLAN))
	})

	It("falls back to the unknown sentinel", func() {
		Expect(appTextEncap(99)).To(Equal(encapUnknown))
	})
})
