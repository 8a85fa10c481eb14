package forwarding

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/arqsim/access"
	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/flowcontrol"
	"github.com/sarchlab/arqsim/sim"
)

const (
	self  = "00:00:00:00:00:01"
	peer  = "00:00:00:00:00:02"
	other = "00:00:00:00:00:03"
)

var _ = Describe("Node", func() {
	var (
		mockCtrl   *gomock.Controller
		clock      *sim.Clock
		accessCtrl *MockController
		flowCtrl   *MockFlowController
		shaper     *MockShaper
		filter     *VLANFilter
		events     *eventlog.MemoryLog
		node       *Node
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		clock = sim.NewClock()
		accessCtrl = NewMockController(mockCtrl)
		flowCtrl = NewMockFlowController(mockCtrl)
		shaper = NewMockShaper(mockCtrl)
		filter = NewVLANFilter()
		filter.Assign(self, 1)
		filter.Assign(peer, 1)
		events = eventlog.NewMemoryLog()

		node = MakeBuilder().
			WithTimeTeller(clock).
			WithKind(Switch).
			WithAddress(self).
			WithAccessController(accessCtrl).
			WithShaper(shaper).
			WithVLANFilter(filter).
			WithFlowFactory(func() flowcontrol.Controller { return flowCtrl }).
			Build("Switch1")
		node.AcceptHook(eventlog.NewRecorder(events))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should reject malformed destinations before any gate", func() {
		outcome, err := node.Send("not-an-address", nil)

		Expect(err).To(MatchError(ErrInvalidAddress))
		Expect(outcome.Kind).To(Equal(eventlog.Rejected))
		Expect(outcome.Reason).To(Equal(eventlog.InvalidAddress))
		Expect(events.Events()).To(Equal([]eventlog.Event{{
			Source:      self,
			Destination: "not-an-address",
			Outcome:     eventlog.Rejected,
			Reason:      eventlog.InvalidAddress,
		}}))
	})

	It("should drop unbound destinations before any gate", func() {
		outcome, err := node.Send(peer, nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(outcome).To(Equal(Outcome{
			Kind:   eventlog.Dropped,
			Reason: eventlog.NoRoute,
		}))
		Expect(events.Events()[0].Reason).To(Equal(eventlog.NoRoute))
	})

	Context("when the destination is bound", func() {
		BeforeEach(func() {
			Expect(node.Bind(peer, Route{Port: 1})).To(Succeed())
		})

		It("should drop frames across VLANs", func() {
			filter.Assign(peer, 2)

			outcome, _ := node.Send(peer, nil)

			Expect(outcome.Reason).To(Equal(eventlog.Filtered))
		})

		It("should drop frames to destinations without a VLAN", func() {
			Expect(node.Bind(other, Route{Port: 3})).To(Succeed())

			outcome, _ := node.Send(other, nil)

			Expect(outcome.Reason).To(Equal(eventlog.Filtered))
		})

		It("should drop when the shaper is out of tokens", func() {
			shaper.EXPECT().Allow().Return(false)

			outcome, _ := node.Send(peer, nil)

			Expect(outcome.Reason).To(Equal(eventlog.RateLimited))
		})

		It("should drop when the medium is busy", func() {
			shaper.EXPECT().Allow().Return(true)
			accessCtrl.EXPECT().MayTransmit(sim.VTick(0)).Return(false)

			outcome, _ := node.Send(peer, nil)

			Expect(outcome.Reason).To(Equal(eventlog.MediumBusy))
		})

		It("should drop when the window is full", func() {
			shaper.EXPECT().Allow().Return(true)
			accessCtrl.EXPECT().MayTransmit(sim.VTick(0)).Return(true)
			flowCtrl.EXPECT().Next().Return(uint64(3))
			flowCtrl.EXPECT().CanSend(uint64(3)).Return(false)

			outcome, _ := node.Send(peer, nil)

			Expect(outcome.Reason).To(Equal(eventlog.WindowFull))
		})

		It("should send", func() {
			shaper.EXPECT().Allow().Return(true)
			accessCtrl.EXPECT().MayTransmit(sim.VTick(0)).Return(true)
			flowCtrl.EXPECT().Next().Return(uint64(3))
			flowCtrl.EXPECT().CanSend(uint64(3)).Return(true)

			outcome, err := node.Send(peer, []byte("hello"))

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome).To(Equal(Outcome{Kind: eventlog.Sent, Seq: 3}))
			Expect(events.Events()).To(Equal([]eventlog.Event{{
				Source:      self,
				Destination: peer,
				Seq:         3,
				HasSeq:      true,
				Outcome:     eventlog.Sent,
			}}))

			packets := node.PendingPackets(peer)
			Expect(packets).To(HaveLen(1))
			Expect(packets[0].Seq).To(Equal(uint64(3)))
			Expect(packets[0].Src).To(Equal(self))
			Expect(packets[0].Payload).To(Equal([]byte("hello")))
		})

		It("should release acknowledged packets", func() {
			shaper.EXPECT().Allow().Return(true)
			accessCtrl.EXPECT().MayTransmit(sim.VTick(0)).Return(true)
			flowCtrl.EXPECT().Next().Return(uint64(0))
			flowCtrl.EXPECT().CanSend(uint64(0)).Return(true)
			node.Send(peer, nil)

			flowCtrl.EXPECT().OnAck(uint64(0)).Return(nil)
			flowCtrl.EXPECT().Base().Return(uint64(1))

			Expect(node.DeliverAck(peer, 0)).To(Succeed())
			Expect(node.PendingPackets(peer)).To(BeEmpty())
		})

		It("should log anomalous acks", func() {
			shaper.EXPECT().Allow().Return(true)
			accessCtrl.EXPECT().MayTransmit(sim.VTick(0)).Return(true)
			flowCtrl.EXPECT().Next().Return(uint64(0))
			flowCtrl.EXPECT().CanSend(uint64(0)).Return(true)
			node.Send(peer, nil)

			flowCtrl.EXPECT().OnAck(uint64(5)).
				Return(flowcontrol.ErrInvalidSequence)

			err := node.DeliverAck(peer, 5)

			Expect(err).To(MatchError(flowcontrol.ErrInvalidSequence))
			last := events.Events()[events.Len()-1]
			Expect(last.Outcome).To(Equal(eventlog.Rejected))
			Expect(last.Reason).To(Equal(eventlog.InvalidSequence))
			Expect(last.Seq).To(Equal(uint64(5)))
			Expect(node.PendingPackets(peer)).To(HaveLen(1))
		})
	})

	It("should reject acks from unknown destinations", func() {
		err := node.DeliverAck(peer, 0)

		Expect(err).To(MatchError(flowcontrol.ErrInvalidSequence))
		Expect(eventlog.CountByReason(events)).
			To(HaveKeyWithValue(eventlog.InvalidSequence, 1))
	})

	It("should learn the first port a source is seen on", func() {
		Expect(node.Receive(Frame{Src: other, Dst: self}, 2)).To(Succeed())
		Expect(node.Receive(Frame{Src: other, Dst: self}, 5)).To(Succeed())

		r, found := node.Table().Lookup(other)
		Expect(found).To(BeTrue())
		Expect(r.Port).To(Equal(2))
	})

	It("should not learn malformed sources", func() {
		err := node.Receive(Frame{Src: "garbage"}, 2)

		Expect(err).To(MatchError(ErrInvalidAddress))
		Expect(node.Table().Len()).To(Equal(0))
	})

	It("should let static bindings overwrite learned ones", func() {
		node.Receive(Frame{Src: other}, 2)
		node.Bind(other, Route{Port: 7})

		r, _ := node.Table().Lookup(other)
		Expect(r.Port).To(Equal(7))
	})
})

var _ = Describe("Bridge", func() {
	It("should never learn", func() {
		bridge := MakeBuilder().
			WithTimeTeller(sim.NewClock()).
			WithAddress(self).
			WithAccessController(access.AlwaysIdle{}).
			Build("Bridge1")

		Expect(bridge.Receive(Frame{Src: other}, 2)).To(Succeed())

		_, found := bridge.Table().Lookup(other)
		Expect(found).To(BeFalse())
	})
})

var _ = Describe("Node with real controllers", func() {
	var (
		clock  *sim.Clock
		events *eventlog.MemoryLog
	)

	BeforeEach(func() {
		clock = sim.NewClock()
		events = eventlog.NewMemoryLog()
	})

	build := func(a access.Controller, fb flowcontrol.Builder) *Node {
		n := MakeBuilder().
			WithTimeTeller(clock).
			WithAddress(self).
			WithAccessController(a).
			WithFlowBuilder(fb).
			Build("Bridge1")
		n.AcceptHook(eventlog.NewRecorder(events))
		Expect(n.Bind(peer, Route{Port: 1})).To(Succeed())
		clock.RegisterTicker(n)

		return n
	}

	It("should fill a Go-Back-N window and reopen it on ack", func() {
		n := build(access.AlwaysIdle{}, flowcontrol.MakeBuilder().
			WithProtocol(flowcontrol.GoBackNProtocol).
			WithWindowSize(3).
			WithInitialSeq(1))

		for seq := uint64(1); seq <= 3; seq++ {
			outcome, _ := n.Send(peer, nil)
			Expect(outcome).To(Equal(Outcome{Kind: eventlog.Sent, Seq: seq}))
		}

		outcome, _ := n.Send(peer, nil)
		Expect(outcome.Reason).To(Equal(eventlog.WindowFull))

		Expect(n.DeliverAck(peer, 1)).To(Succeed())

		outcome, _ = n.Send(peer, nil)
		Expect(outcome).To(Equal(Outcome{Kind: eventlog.Sent, Seq: 4}))

		outcome, _ = n.Send(peer, nil)
		Expect(outcome.Reason).To(Equal(eventlog.WindowFull))
	})

	It("should retransmit the window on timeout", func() {
		n := build(access.AlwaysIdle{}, flowcontrol.MakeBuilder().
			WithWindowSize(3).
			WithTimeout(2))

		n.Send(peer, nil)
		n.Send(peer, nil)

		clock.Tick()
		Expect(events.Len()).To(Equal(2))

		clock.Tick()

		retransmitted := eventlog.Filter(events, func(e eventlog.Event) bool {
			return e.Retransmission
		})
		Expect(retransmitted).To(HaveLen(2))
		Expect(retransmitted[0].Seq).To(Equal(uint64(0)))
		Expect(retransmitted[0].Outcome).To(Equal(eventlog.Sent))
		Expect(retransmitted[0].Tick).To(Equal(sim.VTick(2)))
		Expect(retransmitted[1].Seq).To(Equal(uint64(1)))
		Expect(n.PendingPackets(peer)).To(HaveLen(2))
	})

	It("should stop a retransmission round at the first failure", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		accessCtrl := NewMockController(mockCtrl)
		gomock.InOrder(
			accessCtrl.EXPECT().MayTransmit(gomock.Any()).Return(true).Times(2),
			accessCtrl.EXPECT().MayTransmit(gomock.Any()).Return(false),
			accessCtrl.EXPECT().MayTransmit(gomock.Any()).Return(true).Times(3),
		)

		n := build(accessCtrl, flowcontrol.MakeBuilder().
			WithWindowSize(3).
			WithTimeout(1))

		n.Send(peer, nil)
		n.Send(peer, nil)

		clock.Tick()

		last := events.Events()[events.Len()-1]
		Expect(last.Outcome).To(Equal(eventlog.Dropped))
		Expect(last.Reason).To(Equal(eventlog.MediumBusy))
		Expect(last.Retransmission).To(BeTrue())
		Expect(last.Seq).To(Equal(uint64(0)))

		outcome, _ := n.Send(peer, nil)
		Expect(outcome.Reason).To(Equal(eventlog.WindowFull))

		clock.Tick()

		sent := eventlog.Filter(events, func(e eventlog.Event) bool {
			return e.Retransmission && e.Outcome == eventlog.Sent
		})
		Expect(sent).To(HaveLen(2))
		Expect(sent[0].Seq).To(Equal(uint64(0)))
		Expect(sent[1].Seq).To(Equal(uint64(1)))
	})

	It("should only retransmit expired packets with selective repeat", func() {
		n := build(access.AlwaysIdle{}, flowcontrol.MakeBuilder().
			WithProtocol(flowcontrol.SelectiveRepeatProtocol).
			WithWindowSize(4).
			WithTimeout(2))

		n.Send(peer, nil)
		clock.Tick()
		n.Send(peer, nil)
		Expect(n.DeliverAck(peer, 1)).To(Succeed())

		clock.Tick()

		retransmitted := eventlog.Filter(events, func(e eventlog.Event) bool {
			return e.Retransmission
		})
		Expect(retransmitted).To(HaveLen(1))
		Expect(retransmitted[0].Seq).To(Equal(uint64(0)))

		packets := n.PendingPackets(peer)
		Expect(packets).To(HaveLen(1))
		Expect(packets[0].Seq).To(Equal(uint64(0)))
	})
})

var _ = Describe("Builder", func() {
	It("should panic without an access controller", func() {
		Expect(func() {
			MakeBuilder().
				WithTimeTeller(sim.NewClock()).
				WithAddress(self).
				Build("Node")
		}).To(Panic())
	})

	It("should panic with a malformed address", func() {
		Expect(func() {
			MakeBuilder().
				WithTimeTeller(sim.NewClock()).
				WithAddress("node").
				WithAccessController(access.AlwaysIdle{}).
				Build("Node")
		}).To(Panic())
	})
})
