package flowcontrol

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arqsim/sim"
)

var _ = Describe("GoBackN", func() {
	var (
		clock *sim.Clock
		c     Controller
	)

	BeforeEach(func() {
		clock = sim.NewClock()
		c = MakeBuilder().
			WithTimeTeller(clock).
			WithProtocol(GoBackNProtocol).
			WithWindowSize(3).
			WithInitialSeq(1).
			WithTimeout(5).
			Build()
	})

	It("should admit exactly a window of consecutive packets", func() {
		Expect(c.CanSend(1)).To(BeTrue())
		Expect(c.CanSend(2)).To(BeTrue())
		Expect(c.CanSend(3)).To(BeTrue())
		Expect(c.Next()).To(Equal(uint64(4)))

		Expect(c.CanSend(4)).To(BeFalse())
		Expect(c.Next()).To(Equal(uint64(4)))
	})

	It("should reopen the window on a cumulative ack", func() {
		c.CanSend(1)
		c.CanSend(2)
		c.CanSend(3)

		Expect(c.OnAck(1)).To(Succeed())

		Expect(c.Base()).To(Equal(uint64(2)))
		Expect(c.CanSend(4)).To(BeTrue())
		Expect(c.CanSend(5)).To(BeFalse())
	})

	It("should reopen as many slots as the ack covers", func() {
		c.CanSend(1)
		c.CanSend(2)
		c.CanSend(3)

		Expect(c.OnAck(2)).To(Succeed())

		Expect(c.Base()).To(Equal(uint64(3)))
		Expect(c.CanSend(4)).To(BeTrue())
		Expect(c.CanSend(5)).To(BeTrue())
		Expect(c.CanSend(6)).To(BeFalse())
	})

	It("should refuse out-of-order sequence numbers", func() {
		Expect(c.CanSend(2)).To(BeFalse())
		Expect(c.Next()).To(Equal(uint64(1)))
	})

	It("should ignore an ack outside the outstanding range", func() {
		c.CanSend(1)

		err := c.OnAck(5)

		Expect(err).To(MatchError(ErrInvalidSequence))
		Expect(c.Base()).To(Equal(uint64(1)))
		Expect(c.Next()).To(Equal(uint64(2)))
	})

	It("should ignore an ack for an already acknowledged packet", func() {
		c.CanSend(1)
		c.CanSend(2)
		Expect(c.OnAck(1)).To(Succeed())

		Expect(c.OnAck(1)).To(MatchError(ErrInvalidSequence))
		Expect(c.Base()).To(Equal(uint64(2)))
	})

	It("should arm the timer when sending", func() {
		_, running := c.NextDeadline()
		Expect(running).To(BeFalse())

		c.CanSend(1)

		at, running := c.NextDeadline()
		Expect(running).To(BeTrue())
		Expect(at).To(Equal(sim.VTick(5)))
	})

	It("should stop the timer when everything is acknowledged", func() {
		c.CanSend(1)
		Expect(c.OnAck(1)).To(Succeed())

		_, running := c.NextDeadline()
		Expect(running).To(BeFalse())
	})

	It("should keep the timer when packets are still outstanding", func() {
		c.CanSend(1)
		c.CanSend(2)
		clock.TickUntil(2)

		Expect(c.OnAck(1)).To(Succeed())

		at, running := c.NextDeadline()
		Expect(running).To(BeTrue())
		Expect(at).To(Equal(sim.VTick(7)))
	})

	It("should go back to base on timeout", func() {
		c.CanSend(1)
		c.CanSend(2)
		c.CanSend(3)
		Expect(c.OnAck(1)).To(Succeed())
		clock.TickUntil(5)

		seqs, err := c.OnTimeout()

		Expect(err).NotTo(HaveOccurred())
		Expect(seqs).To(Equal([]uint64{2, 3}))
		Expect(c.Next()).To(Equal(uint64(2)))
		Expect(c.CanSend(2)).To(BeTrue())
	})

	It("should reject a timeout before the deadline", func() {
		c.CanSend(1)
		clock.TickUntil(4)

		seqs, err := c.OnTimeout()

		Expect(err).To(MatchError(ErrInvalidSequence))
		Expect(seqs).To(BeEmpty())
		Expect(c.Next()).To(Equal(uint64(2)))
	})
})
