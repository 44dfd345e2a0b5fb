package action_test

import (
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/audiconnect/audi-control/pkg/action"
)

var _ = Describe("Charge", func() {
	Describe("ParseChargingMode", func() {
		It("accepts known modes in any case", func() {
			mode, err := action.ParseChargingMode(" Timer ")
			Expect(err).ToNot(HaveOccurred())
			Expect(mode).To(Equal(action.ChargingModeTimer))
		})

		It("rejects unknown modes", func() {
			_, err := action.ParseChargingMode("turbo")
			Expect(err).To(MatchError(action.ErrInvalidChargingMode))
		})
	})

	Describe("ChargeStart", func() {
		It("returns with correct mode", func() {
			request, err := action.ChargeStart(action.ChargingModeManual)
			Expect(err).ToNot(HaveOccurred())
			Expect(request.Path).To(Equal("charging/start"))
			Expect(bodyJSON(request)).To(MatchJSON(`{"chargeMode": "manual"}`))
		})
	})

	Describe("SetChargeTarget", func() {
		It("accepts the bounds", func() {
			for _, percent := range []int{action.MinChargeTarget, 80, action.MaxChargeTarget} {
				request, err := action.SetChargeTarget(percent)
				Expect(err).ToNot(HaveOccurred())
				Expect(request.Method).To(Equal(http.MethodPut))
				Expect(request.Body).To(Equal(map[string]int{"targetSOC_pct": percent}))
			}
		})

		It("rejects values outside 20-100", func() {
			for _, percent := range []int{0, 19, 101} {
				_, err := action.SetChargeTarget(percent)
				Expect(err).To(MatchError(action.ErrInvalidChargeTarget))
			}
		})
	})

	Describe("SetChargingMode", func() {
		It("does not start charging", func() {
			request, err := action.SetChargingMode(action.ChargingModeTimer)
			Expect(err).ToNot(HaveOccurred())
			Expect(request.Path).To(Equal("charging/mode"))
		})

		It("rejects invalid modes", func() {
			_, err := action.SetChargingMode("sometimes")
			Expect(err).To(HaveOccurred())
		})
	})
})
