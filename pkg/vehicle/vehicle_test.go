package vehicle_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/oauth2"

	"github.com/audiconnect/audi-control/internal/log"
	"github.com/audiconnect/audi-control/pkg/action"
	"github.com/audiconnect/audi-control/pkg/cache"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

const (
	baseURL   = "https://api.example.com"
	vin       = "WAUZZZ4G0EN000001"
	challenge = "A1B2C3"
	spinHash  = "C00C057CAB86086BECB682A5E4248205961A48C4FF515120537760F2D347B71BB06FDE9EABC960921BAE2D2AEFA5E716F75F2C6090216E142341CDA8BBBE8787"
)

func vehicleURL(path string) string {
	return baseURL + "/vehicle/v1/vehicles/" + vin + "/" + path
}

var _ = Describe("Vehicle", func() {
	var (
		conn   *inet.Connection
		tokens *cache.TokenCache
		ctx    context.Context
	)

	newVehicle := func(level action.APILevel, spin string) *vehicle.Vehicle {
		v := vehicle.NewVehicle(conn, "wauzzz4g0en000001", level, spin, tokens)
		v.RetryInterval = time.Millisecond
		return v
	}

	registerSPIN := func() {
		httpmock.RegisterResponder(http.MethodGet, `=~^`+vehicleURL(`spin/challenge\?operation=`),
			httpmock.NewStringResponder(http.StatusOK, `{"securityPinAuthInfo":{"securityToken":"challenge-token","securityPinTransmission":{"challenge":"`+challenge+`"}}}`))
		httpmock.RegisterResponder(http.MethodPost, baseURL+"/vehicle/v1/spin/complete",
			func(r *http.Request) (*http.Response, error) {
				var answer map[string]map[string]interface{}
				Expect(json.NewDecoder(r.Body).Decode(&answer)).To(Succeed())
				auth := answer["securityPinAuthentication"]
				Expect(auth["securityToken"]).To(Equal("challenge-token"))
				Expect(auth["securityPin"]).To(HaveKeyWithValue("securityPinHash", spinHash))
				return httpmock.NewStringResponse(http.StatusOK, `{"securityToken":"security-token"}`), nil
			})
	}

	BeforeEach(func() {
		client := &http.Client{}
		httpmock.ActivateNonDefault(client)
		DeferCleanup(httpmock.DeactivateAndReset)

		conn = inet.NewConnection(baseURL, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "access"}), "test")
		conn.SetHTTPClient(client)
		conn.SetLimiter(nil)
		tokens = cache.New(0)
		ctx = context.Background()
	})

	It("normalizes the VIN", func() {
		Expect(newVehicle(action.APILevelCombustion, "").VIN()).To(Equal(vin))
	})

	Context("S-PIN commands", func() {
		It("refuses to lock without an S-PIN", func() {
			err := newVehicle(action.APILevelCombustion, "").Lock(ctx)
			Expect(err).To(MatchError(protocol.ErrRequiresSPIN))
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})

		It("answers the challenge and sends the security token", func() {
			registerSPIN()
			httpmock.RegisterResponder(http.MethodPost, vehicleURL("access/lock"),
				func(r *http.Request) (*http.Response, error) {
					Expect(r.Header.Get(vehicle.SecurityTokenHeader)).To(Equal("security-token"))
					return httpmock.NewStringResponse(http.StatusAccepted, `{}`), nil
				})

			v := newVehicle(action.APILevelCombustion, "1234")
			Expect(v.Lock(ctx)).To(Succeed())
			Expect(v.Lock(ctx)).To(Succeed())
			// Second lock reuses the cached token: challenge + complete + 2 locks.
			Expect(httpmock.GetTotalCallCount()).To(Equal(4))
		})

		It("keeps S-PIN material out of debug logs", func() {
			var logs bytes.Buffer
			log.SetOutput(&logs)
			log.SetLevel(log.LevelDebug)
			DeferCleanup(func() {
				log.SetLevel(log.LevelWarning)
				log.SetOutput(nil)
			})
			registerSPIN()
			httpmock.RegisterResponder(http.MethodPost, vehicleURL("access/lock"),
				httpmock.NewStringResponder(http.StatusAccepted, `{}`))

			Expect(newVehicle(action.APILevelCombustion, "1234").Lock(ctx)).To(Succeed())
			Expect(logs.String()).To(ContainSubstring("spin/complete"))
			Expect(logs.String()).NotTo(ContainSubstring(spinHash))
			Expect(logs.String()).NotTo(ContainSubstring(challenge))
			Expect(logs.String()).NotTo(ContainSubstring("security-token"))
		})

		It("drops a token the backend rejects", func() {
			registerSPIN()
			httpmock.RegisterResponder(http.MethodPost, vehicleURL("access/unlock"),
				httpmock.NewStringResponder(http.StatusForbidden, `{"error":"invalid token"}`))

			v := newVehicle(action.APILevelCombustion, "1234")
			Expect(v.Unlock(ctx)).NotTo(Succeed())
			_, ok := tokens.Get(vin, "rlu_v1/operations/UNLOCK")
			Expect(ok).To(BeFalse())
		})

		It("rejects a malformed S-PIN before contacting the server", func() {
			httpmock.RegisterResponder(http.MethodGet, `=~^`+vehicleURL(`spin/challenge`),
				httpmock.NewStringResponder(http.StatusOK, `{"securityPinAuthInfo":{"securityToken":"t","securityPinTransmission":{"challenge":"AB"}}}`))
			err := newVehicle(action.APILevelCombustion, "12a4").StartPreHeater(ctx, 30*time.Minute)
			Expect(err).To(MatchError(vehicle.ErrInvalidSPIN))
		})

		It("starts climate control without an S-PIN", func() {
			httpmock.RegisterResponder(http.MethodPost, vehicleURL("climatisation/start"),
				func(r *http.Request) (*http.Response, error) {
					Expect(r.Header.Get(vehicle.SecurityTokenHeader)).To(BeEmpty())
					return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
				})
			Expect(newVehicle(action.APILevelElectric, "").StartClimate(ctx, action.DefaultClimateOptions())).To(Succeed())
		})
	})

	Context("charging", func() {
		It("requires an electric vehicle", func() {
			v := newVehicle(action.APILevelCombustion, "")
			Expect(v.SetChargeTarget(ctx, 80)).To(MatchError(vehicle.ErrRequiresElectric))
			Expect(v.StartCharging(ctx, action.ChargingModeManual)).To(MatchError(protocol.ErrUnsupported))
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})

		It("sets the charge target", func() {
			httpmock.RegisterResponder(http.MethodPut, vehicleURL("charging/settings"),
				func(r *http.Request) (*http.Response, error) {
					var body map[string]int
					Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
					Expect(body).To(HaveKeyWithValue("targetSOC_pct", 80))
					return httpmock.NewStringResponse(http.StatusOK, `{}`), nil
				})
			Expect(newVehicle(action.APILevelElectric, "").SetChargeTarget(ctx, 80)).To(Succeed())
		})

		It("validates the charge target locally", func() {
			Expect(newVehicle(action.APILevelElectric, "").SetChargeTarget(ctx, 10)).To(MatchError(action.ErrInvalidChargeTarget))
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})
	})

	Context("refresh", func() {
		It("reports a disabled refresh", func() {
			httpmock.RegisterResponder(http.MethodPost, vehicleURL("vehiclewakeuptrigger"),
				httpmock.NewStringResponder(http.StatusForbidden, `{"error":"disabled"}`))
			result, err := newVehicle(action.APILevelCombustion, "").RefreshData(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(vehicle.RefreshDisabled))
		})

		It("retries while the backend is busy", func() {
			httpmock.RegisterResponder(http.MethodPost, vehicleURL("vehiclewakeuptrigger"),
				httpmock.NewStringResponder(http.StatusServiceUnavailable, "").Times(2).
					Then(httpmock.NewStringResponder(http.StatusAccepted, `{}`)))
			result, err := newVehicle(action.APILevelCombustion, "").RefreshData(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(vehicle.RefreshInitiated))
			Expect(httpmock.GetTotalCallCount()).To(Equal(3))
		})

		It("does not retry when throttled", func() {
			httpmock.RegisterResponder(http.MethodPost, vehicleURL("vehiclewakeuptrigger"),
				httpmock.NewStringResponder(http.StatusTooManyRequests, ""))
			_, err := newVehicle(action.APILevelCombustion, "").RefreshData(ctx)
			Expect(err).To(MatchError(protocol.ErrThrottled))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})
	})

	Context("status", func() {
		It("combines status and parking position", func() {
			httpmock.RegisterResponder(http.MethodGet, `=~^`+vehicleURL(`selectivestatus\?jobs=all`),
				httpmock.NewStringResponder(http.StatusOK, statusPayload))
			httpmock.RegisterResponder(http.MethodGet, vehicleURL("parkingposition"),
				httpmock.NewStringResponder(http.StatusOK, `{"data":{"lat":48.77,"lon":11.42,"carCapturedTimestamp":"2024-03-01T10:00:00Z"}}`))

			status, err := newVehicle(action.APILevelElectric, "").Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Position).NotTo(BeNil())
			Expect(status.Position.Latitude).To(BeNumerically("~", 48.77))
			Expect(*status.MileageKm).To(Equal(12345))
		})

		It("tolerates a moving vehicle", func() {
			httpmock.RegisterResponder(http.MethodGet, `=~^`+vehicleURL(`selectivestatus\?jobs=all`),
				httpmock.NewStringResponder(http.StatusOK, statusPayload))
			httpmock.RegisterResponder(http.MethodGet, vehicleURL("parkingposition"),
				httpmock.NewStringResponder(http.StatusNoContent, ""))

			status, err := newVehicle(action.APILevelElectric, "").Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Position).To(BeNil())
		})

		It("tolerates a vehicle without positioning", func() {
			httpmock.RegisterResponder(http.MethodGet, `=~^`+vehicleURL(`selectivestatus\?jobs=all`),
				httpmock.NewStringResponder(http.StatusOK, statusPayload))
			httpmock.RegisterResponder(http.MethodGet, vehicleURL("parkingposition"),
				httpmock.NewStringResponder(http.StatusNotFound, ""))

			status, err := newVehicle(action.APILevelElectric, "").Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Position).To(BeNil())
		})
	})

	Context("trips", func() {
		It("skips unsupported counters", func() {
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/vehicle/v1/trips/"+vin+"/shortterm",
				httpmock.NewStringResponder(http.StatusOK, `{"data":{"current":{"id":7,"mileage_km":12.5,"travelTime_min":20,"tripEndTimestamp":"2024-03-01T10:00:00Z"},"reset":null}}`))
			httpmock.RegisterResponder(http.MethodGet, baseURL+"/vehicle/v1/trips/"+vin+"/longterm",
				httpmock.NewStringResponder(http.StatusNotFound, ""))

			trips, err := newVehicle(action.APILevelCombustion, "").TripData(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(trips.ShortTermCurrent).NotTo(BeNil())
			Expect(trips.ShortTermCurrent.TripID).To(Equal(int64(7)))
			Expect(*trips.ShortTermCurrent.MileageKm).To(BeNumerically("~", 12.5))
			Expect(trips.ShortTermReset).To(BeNil())
			Expect(trips.LongTermCurrent).To(BeNil())
		})
	})
})
