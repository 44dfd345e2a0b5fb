package action_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/audiconnect/audi-control/pkg/action"
)

func bodyJSON(request *action.Request) string {
	b, err := json.Marshal(request.Body)
	Expect(err).ToNot(HaveOccurred())
	return string(b)
}

var _ = Describe("Climate", func() {
	Describe("ClimateStart", func() {
		It("encodes electric settings", func() {
			opts := action.DefaultClimateOptions()
			opts.GlassHeating = true
			opts.SeatFrontLeft = true
			opts.ClimatisationAtUnlock = true
			request, err := action.ClimateStart(action.APILevelElectric, opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(request.Path).To(Equal("climatisation/start"))
			Expect(request.RequiresSPIN()).To(BeFalse())
			Expect(request.Security).ToNot(BeNil())
			Expect(bodyJSON(request)).To(MatchJSON(`{
				"targetTemperature": 21,
				"targetTemperatureUnit": "celsius",
				"climatisationWithoutExternalPower": true,
				"climatizationAtUnlock": true,
				"windowHeatingEnabled": true,
				"zoneFrontLeftEnabled": true,
				"zoneFrontRightEnabled": false,
				"zoneRearLeftEnabled": false,
				"zoneRearRightEnabled": false
			}`))
		})

		It("prefers Fahrenheit when provided", func() {
			f := 72
			opts := action.DefaultClimateOptions()
			opts.TemperatureF = &f
			request, err := action.ClimateStart(action.APILevelElectric, opts)
			Expect(err).ToNot(HaveOccurred())
			Expect(bodyJSON(request)).To(ContainSubstring(`"targetTemperature":72`))
			Expect(bodyJSON(request)).To(ContainSubstring(`"targetTemperatureUnit":"fahrenheit"`))
		})

		It("encodes combustion settings in deci-Kelvin", func() {
			request, err := action.ClimateStart(action.APILevelCombustion, action.DefaultClimateOptions())
			Expect(err).ToNot(HaveOccurred())
			Expect(bodyJSON(request)).To(MatchJSON(`{"targetTemperature": 2941, "climatisationWithoutHVpower": true, "heaterSource": "electric"}`))
		})

		It("rejects out-of-range temperatures", func() {
			opts := action.DefaultClimateOptions()
			opts.TemperatureC = 40
			_, err := action.ClimateStart(action.APILevelElectric, opts)
			Expect(err).To(MatchError(action.ErrInvalidTemperature))

			f := 20
			opts.TemperatureF = &f
			_, err = action.ClimateStart(action.APILevelElectric, opts)
			Expect(err).To(MatchError(action.ErrInvalidTemperature))
		})
	})

	Describe("FahrenheitToCelsius", func() {
		It("rounds to the nearest degree", func() {
			Expect(action.FahrenheitToCelsius(32)).To(Equal(0))
			Expect(action.FahrenheitToCelsius(72)).To(Equal(22))
			Expect(action.FahrenheitToCelsius(70)).To(Equal(21))
			Expect(action.FahrenheitToCelsius(-40)).To(Equal(-40))
		})
	})

	Describe("PreHeaterStart", func() {
		It("sends whole minutes", func() {
			request, err := action.PreHeaterStart(action.DefaultPreHeaterDuration)
			Expect(err).ToNot(HaveOccurred())
			Expect(request.RequiresSPIN()).To(BeTrue())
			Expect(bodyJSON(request)).To(MatchJSON(`{"duration_min": 30}`))
		})

		It("rejects durations outside 1-60 minutes", func() {
			_, err := action.PreHeaterStart(30 * time.Second)
			Expect(err).To(MatchError(action.ErrInvalidDuration))
			_, err = action.PreHeaterStart(2 * time.Hour)
			Expect(err).To(MatchError(action.ErrInvalidDuration))
		})
	})

	Describe("PreHeaterStop", func() {
		It("requires an S-PIN", func() {
			Expect(action.PreHeaterStop().RequiresSPIN()).To(BeTrue())
		})
	})

	Describe("WindowHeating", func() {
		It("selects the endpoint", func() {
			Expect(action.WindowHeating(true).Path).To(Equal("windowheating/start"))
			Expect(action.WindowHeating(false).Path).To(Equal("windowheating/stop"))
		})
	})
})
