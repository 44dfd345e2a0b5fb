package proxy_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/audiconnect/audi-control/mocks"
	"github.com/audiconnect/audi-control/pkg/account"
	"github.com/audiconnect/audi-control/pkg/connector/inet"
	"github.com/audiconnect/audi-control/pkg/protocol"
	"github.com/audiconnect/audi-control/pkg/proxy"
	"github.com/audiconnect/audi-control/pkg/vehicle"
)

const (
	vin    = "WAUZZZGE1NB000001"
	apiKey = "secret-key"
)

var _ = Describe("Proxy", func() {
	var (
		ctrl        *gomock.Controller
		p           *proxy.Proxy
		mockAccount *mocks.Account
		car         *mocks.Vehicle
	)

	sendRequest := func(method, path string, token string, body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		p.ServeHTTP(rr, req)
		return rr
	}

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		mockAccount = mocks.NewAccount(ctrl)
		car = mocks.NewVehicle(ctrl)
		car.EXPECT().VIN().Return(vin).AnyTimes()
		p = proxy.New(mockAccount)
		p.APIKey = apiKey
		DeferCleanup(func() {
			ctrl.Finish()
		})
	})

	Context("client authentication", func() {
		It("rejects missing API key", func() {
			rr := sendRequest(http.MethodGet, "/api/1/vehicles", "", nil)
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("rejects wrong API key", func() {
			rr := sendRequest(http.MethodGet, "/api/1/vehicles", "wrong", nil)
			Expect(rr.Code).To(Equal(http.StatusUnauthorized))
		})

		It("allows anonymous clients when no API key is configured", func() {
			p.APIKey = ""
			mockAccount.EXPECT().Vehicles(gomock.Any()).Return(nil, nil)
			rr := sendRequest(http.MethodGet, "/api/1/vehicles", "", nil)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(`{"response":[]}`))
		})
	})

	Context("vehicle list", func() {
		It("omits raw payloads", func() {
			mockAccount.EXPECT().Vehicles(gomock.Any()).Return([]account.VehicleSummary{
				{VIN: vin, Title: "Q4 e-tron", Raw: []byte(`{"vin":"x"}`)},
			}, nil)
			rr := sendRequest(http.MethodGet, "/api/1/vehicles", apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(fmt.Sprintf(`{"response":[{"vin":"%s","title":"Q4 e-tron"}]}`, vin)))
		})

		It("maps throttling to 429", func() {
			mockAccount.EXPECT().Vehicles(gomock.Any()).Return(nil, protocol.ErrThrottled)
			rr := sendRequest(http.MethodGet, "/api/1/vehicles", apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusTooManyRequests))
		})
	})

	Context("vehicle data", func() {
		It("returns status", func() {
			mileage := 1200
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().Status(gomock.Any()).Return(&vehicle.Status{VIN: vin, MileageKm: &mileage, Raw: []byte(`{}`)}, nil)

			rr := sendRequest(http.MethodGet, fmt.Sprintf("/api/1/vehicles/%s/status", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(fmt.Sprintf(`{"response":{"vin":"%s","mileage_km":1200}}`, vin)))
		})

		It("resolves vehicle names", func() {
			p.Resolve = func(name string) string {
				if name == "etron" {
					return vin
				}
				return strings.ToUpper(name)
			}
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().TripData(gomock.Any()).Return(&vehicle.TripData{}, nil)

			rr := sendRequest(http.MethodGet, "/api/1/vehicles/etron/trips", apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(`{"response":{}}`))
		})

		It("returns not found for unknown vehicles", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(nil, &protocol.VehicleNotFoundError{VIN: vin})
			rr := sendRequest(http.MethodGet, fmt.Sprintf("/api/1/vehicles/%s/status", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects other methods", func() {
			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/status", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})

	Context("vehicle commands", func() {
		Context("invalid VIN", func() {
			It("returns not found", func() {
				rr := sendRequest(http.MethodPost, "/api/1/vehicles/ABC/command/lock", apiKey, nil)
				Expect(rr.Code).To(Equal(http.StatusNotFound))
			})
		})

		It("returns successful response", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().Lock(gomock.Any()).Return(nil)

			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/lock", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(`{"response":{"result":true,"reason":""}}`))
		})

		It("passes parameters", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().SetChargeTarget(gomock.Any(), 80).Return(nil)

			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/set_charge_target", vin), apiKey, []byte(`{"percent": 80}`))
			Expect(rr.Code).To(Equal(http.StatusOK))
		})

		It("reports invalid parameters without contacting the vehicle", func() {
			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/set_charge_target", vin), apiKey, []byte(`{"percent": 5}`))
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(ContainSubstring(`"result":false`))
		})

		It("rejects malformed bodies", func() {
			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/lock", vin), apiKey, []byte("not json"))
			Expect(rr.Code).To(Equal(http.StatusBadRequest))
		})

		It("reports a disabled data refresh as a failed command", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().RefreshData(gomock.Any()).Return(vehicle.RefreshDisabled, nil)

			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/refresh_data", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusOK))
			Expect(rr.Body.String()).To(MatchJSON(fmt.Sprintf(`{"response":{"result":false,"reason":"%s"}}`, proxy.ErrRefreshDisabled)))
		})

		It("returns upstream HTTP errors", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().Unlock(gomock.Any()).Return(&inet.HttpError{Code: http.StatusBadGateway, Message: "upstream"})

			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/unlock", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusBadGateway))
		})

		It("reports upstream authentication failures as a bad gateway", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil).Times(2)
			car.EXPECT().Lock(gomock.Any()).Return(&inet.HttpError{Code: http.StatusUnauthorized, Message: "token expired"})
			car.EXPECT().Unlock(gomock.Any()).Return(&inet.HttpError{Code: http.StatusForbidden})

			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/lock", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusBadGateway))
			rr = sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/unlock", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusBadGateway))
		})

		It("keeps throttling distinct from authentication failures", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().Lock(gomock.Any()).Return(&inet.HttpError{Code: http.StatusForbidden, Message: "login.error.throttled"})

			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/lock", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusTooManyRequests))
		})

		It("requires an S-PIN", func() {
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().Unlock(gomock.Any()).Return(protocol.ErrRequiresSPIN)

			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/unlock", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("fails for unknown command", func() {
			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/honk_horn", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusNotFound))
		})

		It("serializes commands per vehicle", func() {
			release := make(chan struct{})
			started := make(chan struct{})
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil).Times(2)
			first := car.EXPECT().StopClimate(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
				close(started)
				<-release
				return nil
			})
			car.EXPECT().StartClimate(gomock.Any(), gomock.Any()).Return(nil).After(first)

			done := make(chan int)
			go func() {
				defer GinkgoRecover()
				rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/climate_stop", vin), apiKey, nil)
				done <- rr.Code
			}()
			<-started
			go func() {
				defer GinkgoRecover()
				rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/climate_start", vin), apiKey, nil)
				done <- rr.Code
			}()
			Consistently(done, 50*time.Millisecond).ShouldNot(Receive())
			close(release)
			Eventually(done).Should(Receive(Equal(http.StatusOK)))
			Eventually(done).Should(Receive(Equal(http.StatusOK)))
		})

		It("times out while waiting for another command", func() {
			release := make(chan struct{})
			started := make(chan struct{})
			mockAccount.EXPECT().GetVehicle(gomock.Any(), vin).Return(car, nil)
			car.EXPECT().StopClimate(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
				close(started)
				<-release
				return nil
			})

			done := make(chan int)
			go func() {
				defer GinkgoRecover()
				rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/climate_stop", vin), apiKey, nil)
				done <- rr.Code
			}()
			<-started
			p.Timeout = 25 * time.Millisecond
			rr := sendRequest(http.MethodPost, fmt.Sprintf("/api/1/vehicles/%s/command/lock", vin), apiKey, nil)
			Expect(rr.Code).To(Equal(http.StatusServiceUnavailable))
			close(release)
			Eventually(done).Should(Receive(Equal(http.StatusOK)))
		})
	})

	It("returns 404 for path not starting with /api/1/vehicles", func() {
		rr := sendRequest(http.MethodGet, "/unknown", apiKey, nil)
		Expect(rr.Code).To(Equal(http.StatusNotFound))
	})
})
