package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/arqsim/access"
	"github.com/sarchlab/arqsim/eventlog"
	"github.com/sarchlab/arqsim/forwarding"
	"github.com/sarchlab/arqsim/sim"
)

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		clock  *sim.Clock
		events *eventlog.MemoryLog
		node   *forwarding.Node
		server http.Handler
	)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		return rec
	}

	BeforeEach(func() {
		clock = sim.NewClock()
		events = eventlog.NewMemoryLog()

		node = forwarding.MakeBuilder().
			WithTimeTeller(clock).
			WithAddress("00:00:00:00:00:01").
			WithAccessController(access.AlwaysIdle{}).
			Build("Bridge1")
		node.AcceptHook(eventlog.NewRecorder(events))
		Expect(node.Bind("00:00:00:00:00:02", forwarding.Route{Port: 1})).
			To(Succeed())

		m = NewMonitor()
		m.RegisterClock(clock)
		m.RegisterNode(node)
		m.RegisterEventLog(events)
		server = m.Handler()
	})

	It("should report the current tick", func() {
		clock.Tick()

		rec := get("/api/now")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`{"now":1}`))
	})

	It("should advance the clock", func() {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/api/tick?n=3", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(clock.Now()).To(Equal(sim.VTick(3)))
	})

	It("should refuse invalid tick counts", func() {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec,
			httptest.NewRequest(http.MethodPost, "/api/tick?n=-1", nil))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(clock.Now()).To(Equal(sim.VTick(0)))
	})

	It("should list nodes", func() {
		rec := get("/api/list_nodes")

		Expect(rec.Body.String()).To(Equal(`["Bridge1"]`))
	})

	It("should show node details", func() {
		node.Send("00:00:00:00:00:02", nil)

		rec := get("/api/node/Bridge1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("Bridge1"))
	})

	It("should return 404 for unknown nodes", func() {
		rec := get("/api/node/Switch9")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		rec := get("/api/field/" + url.PathEscape("{not json"))

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list events with pagination", func() {
		node.Send("00:00:00:00:00:02", nil)
		node.Send("00:00:00:00:00:03", nil)
		node.Send("00:00:00:00:00:02", nil)

		rec := get("/api/events?offset=1&limit=1")

		var rsp []eventRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].Destination).To(Equal("00:00:00:00:00:03"))
		Expect(rsp[0].Outcome).To(Equal("Drop"))
		Expect(rsp[0].Reason).To(Equal("NoRoute"))
	})

	It("should refuse negative offsets", func() {
		rec := get("/api/events?offset=-2")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should count drops by reason", func() {
		node.Send("00:00:00:00:00:03", nil)
		node.Send("00:00:00:00:00:04", nil)

		rec := get("/api/drops")

		Expect(rec.Body.String()).To(Equal(`{"NoRoute":2}`))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("run", 10)
		bar.IncrementFinished(10)

		Expect(bar.Done()).To(BeTrue())
		Expect(get("/api/progress").Body.String()).To(ContainSubstring(`"run"`))

		m.CompleteProgressBar(bar)

		Expect(get("/api/progress").Body.String()).To(Equal("[]"))
	})
})
