package action_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/audiconnect/audi-control/pkg/action"
)

var _ = Describe("Security", func() {
	Describe("Lock", func() {
		It("requires an S-PIN", func() {
			request := action.Lock()
			Expect(request.Method).To(Equal(http.MethodPost))
			Expect(request.Path).To(Equal("access/lock"))
			Expect(request.RequiresSPIN()).To(BeTrue())
			Expect(request.Security.String()).To(Equal("rlu_v1/operations/LOCK"))
		})
	})

	Describe("Unlock", func() {
		It("uses the unlock operation", func() {
			request := action.Unlock()
			Expect(request.Path).To(Equal("access/unlock"))
			Expect(*request.Security).To(Equal(action.OperationUnlock))
		})
	})

	Describe("RefreshData", func() {
		It("does not require an S-PIN", func() {
			request := action.RefreshData()
			Expect(request.Path).To(Equal("vehiclewakeuptrigger"))
			Expect(request.RequiresSPIN()).To(BeFalse())
			Expect(request.Body).To(BeNil())
		})
	})

	Describe("APILevel", func() {
		It("names levels", func() {
			Expect(action.APILevelCombustion.String()).To(Equal("gas"))
			Expect(action.APILevelElectric.String()).To(Equal("electric"))
			Expect(action.APILevel(7).String()).To(Equal("unknown"))
		})
	})
})
