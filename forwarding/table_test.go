package forwarding

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = DescribeTable("ValidateAddress",
	func(addr string, valid bool) {
		err := ValidateAddress(addr)
		if valid {
			Expect(err).NotTo(HaveOccurred())
		} else {
			Expect(err).To(MatchError(ErrInvalidAddress))
		}
	},
	Entry("lower case", "0a:1b:2c:3d:4e:5f", true),
	Entry("upper case", "0A:1B:2C:3D:4E:5F", true),
	Entry("empty", "", false),
	Entry("too short", "0a:1b:2c:3d:4e", false),
	Entry("too long", "0a:1b:2c:3d:4e:5f:60", false),
	Entry("wrong separator", "0a-1b-2c-3d-4e-5f", false),
	Entry("not hex", "0g:1b:2c:3d:4e:5f", false),
	Entry("single digit", "a:1b:2c:3d:4e:5f0", false),
)

var _ = Describe("Table", func() {
	var (
		t *Table
	)

	BeforeEach(func() {
		t = NewTable()
	})

	It("should not find unbound destinations", func() {
		_, found := t.Lookup("00:00:00:00:00:01")

		Expect(found).To(BeFalse())
	})

	It("should keep the first learned route", func() {
		Expect(t.Learn("00:00:00:00:00:01", Route{Port: 1})).To(BeTrue())
		Expect(t.Learn("00:00:00:00:00:01", Route{Port: 2})).To(BeFalse())

		r, found := t.Lookup("00:00:00:00:00:01")

		Expect(found).To(BeTrue())
		Expect(r.Port).To(Equal(1))
	})

	It("should not learn over a static binding", func() {
		t.Bind("00:00:00:00:00:01", Route{Port: 3})

		Expect(t.Learn("00:00:00:00:00:01", Route{Port: 1})).To(BeFalse())

		r, _ := t.Lookup("00:00:00:00:00:01")
		Expect(r.Port).To(Equal(3))
	})

	It("should overwrite with static bindings", func() {
		t.Learn("00:00:00:00:00:01", Route{Port: 1})
		t.Bind("00:00:00:00:00:01", Route{Port: 2, NextHop: "Switch2"})

		Expect(t.Len()).To(Equal(1))
		Expect(t.Bindings()).To(Equal([]Binding{{
			Destination: "00:00:00:00:00:01",
			Route:       Route{Port: 2, NextHop: "Switch2"},
			Origin:      Static,
		}}))
	})

	It("should list bindings by destination", func() {
		t.Bind("00:00:00:00:00:02", Route{Port: 2})
		t.Learn("00:00:00:00:00:01", Route{Port: 1})

		bindings := t.Bindings()

		Expect(bindings).To(HaveLen(2))
		Expect(bindings[0].Destination).To(Equal("00:00:00:00:00:01"))
		Expect(bindings[0].Origin).To(Equal(Learned))
		Expect(bindings[1].Destination).To(Equal("00:00:00:00:00:02"))
	})
})

var _ = Describe("VLANFilter", func() {
	It("should only allow the same VLAN", func() {
		f := NewVLANFilter()
		f.Assign("00:00:00:00:00:01", 10)
		f.Assign("00:00:00:00:00:02", 10)
		f.Assign("00:00:00:00:00:03", 20)

		Expect(f.Allow("00:00:00:00:00:01", "00:00:00:00:00:02")).To(BeTrue())
		Expect(f.Allow("00:00:00:00:00:01", "00:00:00:00:00:03")).To(BeFalse())
	})

	It("should refuse addresses without a VLAN", func() {
		f := NewVLANFilter()
		f.Assign("00:11:22:33:44:55", 1)

		Expect(f.Allow("aa:aa:aa:aa:aa:aa", "bb:bb:bb:bb:bb:bb")).To(BeFalse())
		Expect(f.Allow("aa:aa:aa:aa:aa:aa", "00:11:22:33:44:55")).To(BeFalse())
		Expect(f.Allow("00:11:22:33:44:55", "bb:bb:bb:bb:bb:bb")).To(BeFalse())
	})

	It("should report the VLAN of assigned addresses only", func() {
		f := NewVLANFilter()
		f.Assign("00:11:22:33:44:55", 7)

		vlan, found := f.VLANOf("00:11:22:33:44:55")
		Expect(found).To(BeTrue())
		Expect(vlan).To(Equal(7))

		_, found = f.VLANOf("aa:aa:aa:aa:aa:aa")
		Expect(found).To(BeFalse())
	})
})
