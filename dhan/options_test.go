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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtmStrike(t *testing.T) {
	assert.Equal(t, 14000.0, AtmStrike(14013.3, 50))
	assert.Equal(t, 48200.0, AtmStrike(48237.5, 100))
	assert.Equal(t, 23650.0, AtmStrike(23642.2, 50))
	assert.Equal(t, 18000.0, AtmStrike(18020.0, 50))
}

func TestMoneyness(t *testing.T) {
	tests := []struct {
		name       string
		optionType string
		strike     float64
		spot       float64
		atm        float64
		want       string
	}{
		{"call below spot is in the money", "CE", 17950, 18003.5, 18000, "ITM"},
		{"call above spot is out of the money", "CE", 18050, 18003.5, 18000, "OTM"},
		{"put above spot is in the money", "PE", 18050, 18003.5, 18000, "ITM"},
		{"put below spot is out of the money", "PE", 17950, 18003.5, 18000, "OTM"},
		{"call at the atm strike", "CE", 18000, 18003.5, 18000, "ATM"},
		{"put at the atm strike", "PE", 18000, 18003.5, 18000, "ATM"},
		{"rounding noise still counts as atm", "CE", 18000.005, 18003.5, 18000, "ATM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Moneyness(tt.optionType, tt.strike, tt.spot, tt.atm))
		})
	}
}

func TestStrikeBuckets(t *testing.T) {
	buckets := StrikeBuckets()
	require.Len(t, buckets, 21)
	assert.Equal(t, "ATM", buckets[0])
	assert.Contains(t, buckets, "ATM+10")
	assert.Contains(t, buckets, "ATM-10")

	seen := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		assert.False(t, seen[b], "bucket %s listed twice", b)
		seen[b] = true
	}
}

func TestStrikeOffset(t *testing.T) {
	assert.Equal(t, int32(0), StrikeOffset("ATM"))
	assert.Equal(t, int32(3), StrikeOffset("ATM+3"))
	assert.Equal(t, int32(-7), StrikeOffset("ATM-7"))
	assert.Equal(t, int32(10), StrikeOffset("ATM+10"))
}

func TestOptionRows(t *testing.T) {
	target := OptionTarget{Underlying: "NIFTY", SecurityID: "13", ExchangeSegment: SegmentNSEFNO, StrikeStep: 50}
	w := Window{
		From: time.Date(2025, 1, 1, 0, 0, 0, 0, IST),
		To:   time.Date(2025, 1, 8, 0, 0, 0, 0, IST),
	}

	t.Run("short auxiliary arrays pad with zeros", func(t *testing.T) {
		data := &SeriesData{
			Timestamp: []float64{1735702200, 1735702260},
			Open:      []float64{120.5, 121.0},
			High:      []float64{125.0, 126.1},
			Low:       []float64{118.2, 119.5},
			Close:     []float64{121.4, 122.2},
			Volume:    []float64{5400},
			Strike:    []float64{18000, 18000},
			Spot:      []float64{18003.5, 18010.2},
		}

		rows, err := optionRows(target, data, w, "WEEK", 1, "ATM", "CE")
		require.NoError(t, err)
		require.Len(t, rows, 2)

		first := rows[0]
		assert.Equal(t, int64(1735702200), first.Ts)
		assert.Equal(t, EpochIST(1735702200), first.Datetime)
		assert.Equal(t, "NIFTY", first.Underlying)
		assert.Equal(t, "CE", first.OptionType)
		assert.Equal(t, "WEEK", first.ExpiryType)
		assert.Equal(t, int32(1), first.ExpiryCode)
		assert.Equal(t, int32(0), first.StrikeOffset)
		assert.Equal(t, 18000.0, first.AtmStrike)
		assert.Equal(t, "ATM", first.Moneyness)
		assert.Equal(t, int64(5400), first.Volume)

		second := rows[1]
		assert.Zero(t, second.Volume)
		assert.Zero(t, second.OI)
		assert.Zero(t, second.IV)
	})

	t.Run("misaligned ohlc arrays are rejected", func(t *testing.T) {
		data := &SeriesData{
			Timestamp: []float64{1735702200, 1735702260},
			Open:      []float64{120.5},
			High:      []float64{125.0, 126.1},
			Low:       []float64{118.2, 119.5},
			Close:     []float64{121.4, 122.2},
		}

		_, err := optionRows(target, data, w, "WEEK", 1, "ATM", "CE")
		var merr *MisalignedError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, 2, merr.Timestamps)
		assert.Contains(t, err.Error(), "2025-01-01")
	})

	t.Run("missing spot leaves atm and moneyness unset", func(t *testing.T) {
		data := &SeriesData{
			Timestamp: []float64{1735702200},
			Open:      []float64{120.5},
			High:      []float64{125.0},
			Low:       []float64{118.2},
			Close:     []float64{121.4},
			Strike:    []float64{18000},
		}

		rows, err := optionRows(target, data, w, "MONTH", 2, "ATM-2", "PE")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Zero(t, rows[0].AtmStrike)
		assert.Empty(t, rows[0].Moneyness)
		assert.Equal(t, int32(-2), rows[0].StrikeOffset)
		assert.Equal(t, 18000.0, rows[0].Strike)
	})
}

func TestFetchOptionCandles(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, IST)
	end := start.AddDate(0, 0, 7)
	target := OptionTarget{Underlying: "NIFTY", SecurityID: "13", ExchangeSegment: SegmentNSEFNO, StrikeStep: 50}

	var calls int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		assert.Equal(t, "/charts/rollingoption", r.URL.Path)

		var req RollingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		assert.Equal(t, "13", req.SecurityID)
		assert.Equal(t, InstrumentOptIdx, req.Instrument)
		assert.Equal(t, "2025-01-01", req.FromDate)
		assert.Equal(t, "2025-01-08", req.ToDate)
		assert.Equal(t, rollingFields, req.RequiredData)

		if req.ExpiryFlag == "WEEK" && req.ExpiryCode == 1 && req.Strike == "ATM" && req.OptionType == "CALL" {
			json.NewEncoder(w).Encode(RollingResponse{Data: RollingSides{CE: &SeriesData{
				Timestamp: []float64{1735702200, 1735702260},
				Open:      []float64{120.5, 121.0},
				High:      []float64{125.0, 126.1},
				Low:       []float64{118.2, 119.5},
				Close:     []float64{121.4, 122.2},
				Volume:    []float64{5400, 4200},
				OI:        []float64{120000, 121000},
				IV:        []float64{14.2, 14.3},
				Strike:    []float64{23650, 23650},
				Spot:      []float64{23642.2, 23648.9},
			}}})
			return
		}

		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":"DH-905","errorMessage":"no data available for the given range"}`)
	}))

	rows, err := client.FetchOptionCandles(context.Background(), target, start, end)
	require.NoError(t, err)

	assert.EqualValues(t, 252, atomic.LoadInt64(&calls), "every expiry, strike and side combination must be tried")
	require.Len(t, rows, 2)
	assert.Equal(t, "NIFTY", rows[0].Underlying)
	assert.Equal(t, "CE", rows[0].OptionType)
	assert.Equal(t, "WEEK", rows[0].ExpiryType)
	assert.Equal(t, int32(1), rows[0].ExpiryCode)
	assert.Equal(t, 23650.0, rows[0].AtmStrike)
	assert.Equal(t, "ATM", rows[0].Moneyness)
	assert.Equal(t, int64(120000), rows[0].OI)
}

func TestFetchOptionCandlesSkipsFailedCombination(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, IST)
	end := start.AddDate(0, 0, 7)
	target := OptionTarget{Underlying: "NIFTY", SecurityID: "13", ExchangeSegment: SegmentNSEFNO, StrikeStep: 50}

	var calls int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)

		var req RollingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		switch {
		case req.ExpiryFlag == "MONTH" && req.ExpiryCode == 2 && req.Strike == "ATM+3" && req.OptionType == "PUT":
			http.Error(w, "upstream unavailable", http.StatusInternalServerError)
		case req.ExpiryFlag == "WEEK" && req.ExpiryCode == 1 && req.Strike == "ATM" && req.OptionType == "CALL":
			json.NewEncoder(w).Encode(RollingResponse{Data: RollingSides{CE: &SeriesData{
				Timestamp: []float64{1735702200},
				Open:      []float64{120.5},
				High:      []float64{125.0},
				Low:       []float64{118.2},
				Close:     []float64{121.4},
			}}})
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"errorCode":"DH-905","errorMessage":"no data available for the given range"}`)
		}
	}))

	rows, err := client.FetchOptionCandles(context.Background(), target, start, end)
	require.NoError(t, err, "a failing combination is skipped, not fatal")
	assert.EqualValues(t, 252, atomic.LoadInt64(&calls))
	assert.Len(t, rows, 1)
}

func TestFetchOptionCandlesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int64
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 5 {
			cancel()
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":"DH-905","errorMessage":"no data available for the given range"}`)
	}))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, IST)
	target := OptionTarget{Underlying: "NIFTY", SecurityID: "13", ExchangeSegment: SegmentNSEFNO, StrikeStep: 50}

	rows, err := client.FetchOptionCandles(ctx, target, start, start.AddDate(0, 0, 7))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rows)
	assert.Less(t, atomic.LoadInt64(&calls), int64(252), "cancellation must stop the combination walk early")
}

func TestFetchOptionCandlesEmptyRange(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty range")
	}))

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, IST)
	target := OptionTarget{Underlying: "NIFTY", SecurityID: "13", ExchangeSegment: SegmentNSEFNO, StrikeStep: 50}

	rows, err := client.FetchOptionCandles(context.Background(), target, start, start)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
