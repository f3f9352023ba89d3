package monitoring

import (
	"reflect"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/chat2snack/snacksim/sim"
)

type walkTarget struct {
	count    int
	label    string
	child    *walkTarget
	children []walkTarget
}

type probeComponent struct {
	*sim.ComponentBase

	queue sim.Buffer
}

func (c *probeComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *probeComponent) NotifyRecv(_ sim.Port) {
	// Do nothing
}

func (c *probeComponent) NotifyPortFree(_ sim.Port) {
	// Do nothing
}

func newProbeComponent() *probeComponent {
	c := &probeComponent{
		ComponentBase: sim.NewComponentBase("Probe"),
		queue:         sim.NewBuffer("Probe.Queue", 10),
	}

	c.AddPort("Port1", sim.NewPort(c, 2, 2, "Probe.Port1"))

	return c
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	expectInt := func(elem reflect.Value, err error, want int64) {
		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Type().Name()).To(Equal("int"))
		Expect(elem.Int()).To(Equal(want))
	}

	BeforeEach(func() {
		m = &Monitor{}
	})

	It("should register components and internal buffers", func() {
		c := newProbeComponent()
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))
	})

	It("should walk int fields", func() {
		target := &walkTarget{count: 1}

		elem, err := m.walkFields(target, "count")

		expectInt(elem, err, 1)
	})

	It("should walk string fields", func() {
		target := &walkTarget{label: "abc"}

		elem, err := m.walkFields(target, "label")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.Type().Name()).To(Equal("string"))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk struct", func() {
		target := &walkTarget{child: &walkTarget{}}

		elem, err := m.walkFields(target, "child")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("walkTarget"))
	})

	It("should walk recursively", func() {
		target := &walkTarget{
			child: &walkTarget{count: 1},
		}

		elem, err := m.walkFields(target, "child.count")

		expectInt(elem, err, 1)
	})

	It("should walk slice", func() {
		target := &walkTarget{
			children: []walkTarget{{}, {}},
		}

		elem, err := m.walkFields(target, "children")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Slice))
	})

	It("should walk slice recursively", func() {
		target := &walkTarget{
			children: []walkTarget{{
				children: []walkTarget{
					{count: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(target, "children.0.children.0.count")

		expectInt(elem, err, 1)
	})

	It("should reject non-numeric slice indices", func() {
		target := &walkTarget{
			children: []walkTarget{{}},
		}

		_, err := m.walkFields(target, "children.first")

		Expect(err).To(MatchError(errBadFieldPath))
	})

	It("should select buffers within bounds", func() {
		for i := 0; i < 3; i++ {
			buf := sim.NewBuffer(sim.BuildNameWithIndex("Comp", "Buf", i), 4)
			m.buffers = append(m.buffers, buf)
		}

		all := m.sortAndSelectBuffers("percent", 0, 0)
		Expect(all).To(HaveLen(3))

		limited := m.sortAndSelectBuffers("percent", 2, 0)
		Expect(limited).To(HaveLen(2))

		tail := m.sortAndSelectBuffers("percent", 10, 2)
		Expect(tail).To(HaveLen(1))

		empty := m.sortAndSelectBuffers("percent", 2, 5)
		Expect(empty).To(BeEmpty())
	})
})
