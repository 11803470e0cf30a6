/*
Copyright 2025

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package dhan

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClient wires a Client to an httptest server with the rate limit
// opened up so combination-heavy tests finish quickly.
func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, srv.URL+"/api-scrip-master-detailed.csv", "test-token", 1000)
}

func TestNewClient(t *testing.T) {
	c := NewClient("https://api.dhan.co/v2/", "https://images.dhan.co/api-data/api-scrip-master-detailed.csv", "tok", 0)
	assert.Equal(t, "https://api.dhan.co/v2", c.baseURL, "trailing slash is trimmed")
	assert.NotNil(t, c.limit)
	assert.NotNil(t, c.http)
}

func TestIntraday(t *testing.T) {
	t.Run("fetches and decodes candles", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/charts/intraday", r.URL.Path)
			assert.Equal(t, "test-token", r.Header.Get("access-token"))

			var req IntradayRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			assert.Equal(t, "13", req.SecurityID)
			assert.Equal(t, SegmentIndex, req.ExchangeSegment)
			assert.Equal(t, InstrumentIndex, req.Instrument)
			assert.Equal(t, "1", req.Interval)
			assert.Equal(t, "2021-01-01 00:00:00", req.FromDate)
			assert.Equal(t, "2021-01-02 23:59:59", req.ToDate)

			json.NewEncoder(w).Encode(SeriesData{
				Timestamp: []float64{1609472700, 1609472760},
				Open:      []float64{14000.1, 14001.2},
				High:      []float64{14002.5, 14003.0},
				Low:       []float64{13999.0, 14000.8},
				Close:     []float64{14001.2, 14002.4},
				Volume:    []float64{0, 0},
			})
		}))

		data, err := client.Intraday(context.Background(), IntradayRequest{
			SecurityID:      "13",
			ExchangeSegment: SegmentIndex,
			Instrument:      InstrumentIndex,
			Interval:        "1",
			FromDate:        "2021-01-01 00:00:00",
			ToDate:          "2021-01-02 23:59:59",
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{1609472700, 1609472760}, data.Timestamp)
		assert.Equal(t, []float64{14001.2, 14002.4}, data.Close)
	})

	t.Run("no data marker yields an empty result", func(t *testing.T) {
		for _, code := range []string{"DH-905", "DH-907"} {
			t.Run(code, func(t *testing.T) {
				client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusBadRequest)
					fmt.Fprintf(w, `{"errorCode":%q,"errorMessage":"No Data found for the given range"}`, code)
				}))

				data, err := client.Intraday(context.Background(), IntradayRequest{})
				require.NoError(t, err)
				assert.Empty(t, data.Timestamp)
			})
		}
	})

	t.Run("error responses surface status and body", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			body   string
		}{
			{"oversized range", http.StatusBadRequest, `{"errorCode":"DH-906","errorMessage":"requested number of days is too large"}`},
			{"no data code without the message", http.StatusBadRequest, `{"errorCode":"DH-905","errorMessage":"invalid security id"}`},
			{"rate limited", http.StatusTooManyRequests, `rate limit exceeded`},
			{"server error", http.StatusInternalServerError, `upstream unavailable`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					fmt.Fprint(w, tt.body)
				}))

				_, err := client.Intraday(context.Background(), IntradayRequest{})
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.Contains(t, err.Error(), fmt.Sprintf("dhan api error %d", tt.status))
			})
		}
	})

	t.Run("garbage body on success is a decode error", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html>not json</html>")
		}))

		_, err := client.Intraday(context.Background(), IntradayRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})
}

func TestRollingOption(t *testing.T) {
	t.Run("fetches and decodes one combination", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/charts/rollingoption", r.URL.Path)

			var req RollingRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			assert.Equal(t, SegmentNSEFNO, req.ExchangeSegment)
			assert.Equal(t, InstrumentOptIdx, req.Instrument)
			assert.Equal(t, "WEEK", req.ExpiryFlag)
			assert.Equal(t, 1, req.ExpiryCode)
			assert.Equal(t, "ATM", req.Strike)
			assert.Equal(t, "CALL", req.OptionType)
			assert.Equal(t, rollingFields, req.RequiredData)

			json.NewEncoder(w).Encode(RollingResponse{Data: RollingSides{CE: &SeriesData{
				Timestamp: []float64{1735702200},
				Open:      []float64{120.5},
				High:      []float64{125.0},
				Low:       []float64{118.2},
				Close:     []float64{121.4},
			}}})
		}))

		resp, err := client.RollingOption(context.Background(), RollingRequest{
			ExchangeSegment: SegmentNSEFNO,
			Interval:        "1",
			SecurityID:      "13",
			Instrument:      InstrumentOptIdx,
			ExpiryFlag:      "WEEK",
			ExpiryCode:      1,
			Strike:          "ATM",
			OptionType:      "CALL",
			RequiredData:    rollingFields,
			FromDate:        "2025-01-01",
			ToDate:          "2025-01-08",
		})
		require.NoError(t, err)
		require.NotNil(t, resp.Data.CE)
		assert.Nil(t, resp.Data.PE)
		assert.Equal(t, []float64{121.4}, resp.Data.CE.Close)
	})

	t.Run("no data marker yields an empty response", func(t *testing.T) {
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"errorCode":"DH-907","errorMessage":"no data available for the requested strike"}`)
		}))

		resp, err := client.RollingOption(context.Background(), RollingRequest{})
		require.NoError(t, err)
		assert.Nil(t, resp.Data.CE)
		assert.Nil(t, resp.Data.PE)
	})
}

func TestRollingSidesSide(t *testing.T) {
	ce := &SeriesData{Timestamp: []float64{1}}
	pe := &SeriesData{Timestamp: []float64{2}}
	sides := RollingSides{CE: ce, PE: pe}

	assert.Same(t, ce, sides.Side("CE"))
	assert.Same(t, pe, sides.Side("PE"))
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: http.StatusBadRequest, Body: []byte(`{"errorCode":"DH-906"}` + "\n")}
	assert.Equal(t, `dhan api error 400: {"errorCode":"DH-906"}`, err.Error())
	assert.True(t, err.Oversized())

	throttled := &APIError{StatusCode: http.StatusTooManyRequests, Body: []byte("slow down")}
	assert.False(t, throttled.Oversized())
}
