package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"

	"github.com/chat2snack/snacksim/sim"
)

var _ = Describe("Api", func() {
	var (
		mockCtrl *gomock.Controller
		domain   *MockNamedHookable
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		domain = NewMockNamedHookable(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should do nothing when the domain has no hooks", func() {
		domain.EXPECT().NumHooks().Return(0).AnyTimes()

		StartTask("", "", domain, "", "", "", nil)
		AddTaskStep("", domain, "")
		EndTask("", domain)
	})

	Context("when the domain has hooks", func() {
		BeforeEach(func() {
			domain.EXPECT().NumHooks().Return(1).AnyTimes()
		})

		It("should invoke the task start hook", func() {
			domain.EXPECT().Name().Return("domain").AnyTimes()
			domain.EXPECT().
				InvokeHook(gomock.Any()).
				Do(func(ctx sim.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskStart))

					task := ctx.Item.(Task)
					Expect(task.ID).To(Equal("id"))
					Expect(task.ParentID).To(Equal("parent"))
					Expect(task.Kind).To(Equal("kind"))
					Expect(task.What).To(Equal("what"))
					Expect(task.Where).To(Equal("domain"))
				})

			StartTask("id", "parent", domain, "kind", "what", "domain", nil)
		})

		It("should panic if the ID is not given", func() {
			domain.EXPECT().Name().Return("domain").AnyTimes()
			Expect(func() {
				StartTask("", "123", domain, "kind", "what", "domain", nil)
			}).Should(Panic())
		})

		It("should panic if the domain has no name", func() {
			domain.EXPECT().Name().Return("").AnyTimes()
			Expect(func() {
				StartTask("id", "123", domain, "kind", "what", "", nil)
			}).Should(Panic())
		})

		It("should panic if the kind is empty", func() {
			domain.EXPECT().Name().Return("domain").AnyTimes()
			Expect(func() {
				StartTask("id", "123", domain, "", "what", "domain", nil)
			}).Should(Panic())
		})

		It("should panic if the what is empty", func() {
			domain.EXPECT().Name().Return("domain").AnyTimes()
			Expect(func() {
				StartTask("id", "123", domain, "kind", "", "domain", nil)
			}).Should(Panic())
		})

		It("should invoke the task step hook", func() {
			domain.EXPECT().
				InvokeHook(gomock.Any()).
				Do(func(ctx sim.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskStep))

					task := ctx.Item.(Task)
					Expect(task.ID).To(Equal("id"))
					Expect(task.Steps).To(HaveLen(1))
					Expect(task.Steps[0].What).To(Equal("latched"))
				})

			AddTaskStep("id", domain, "latched")
		})

		It("should invoke the task end hook", func() {
			domain.EXPECT().
				InvokeHook(gomock.Any()).
				Do(func(ctx sim.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskEnd))
					Expect(ctx.Item.(Task).ID).To(Equal("id"))
				})

			EndTask("id", domain)
		})
	})

	It("should derive message task IDs from the message ID", func() {
		domain.EXPECT().Name().Return("Board.Assembler")

		msg := sim.MsgMeta{ID: "abc"}
		wrapped := &idOnlyMsg{meta: msg}

		Expect(MsgIDAtSender(wrapped)).To(Equal("abc_req_out"))
		Expect(MsgIDAtReceiver(wrapped, domain)).
			To(Equal("abc@Board.Assembler"))
	})
})

type idOnlyMsg struct {
	meta sim.MsgMeta
}

func (m *idOnlyMsg) Meta() *sim.MsgMeta {
	return &m.meta
}

func (m *idOnlyMsg) Clone() sim.Msg {
	return &idOnlyMsg{meta: m.meta}
}
