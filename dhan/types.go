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

// Exchange segments and instrument kinds as Dhan's candle endpoints spell
// them.
const (
	SegmentIndex  = "IDX_I"
	SegmentNSEEq  = "NSE_EQ"
	SegmentNSEFNO = "NSE_FNO"
	SegmentBSEFNO = "BSE_FNO"

	InstrumentIndex  = "INDEX"
	InstrumentEquity = "EQUITY"
	InstrumentOptIdx = "OPTIDX"
)

// Maximum request spans accepted by each endpoint, in days.
const (
	intradayWindowDays = 90
	rollingWindowDays  = 30
)

// Expiry dimensions walked by the option fetcher. The rolling endpoint
// numbers expiries 1-3 (near, next, far).
var (
	ExpiryFlags = []string{"WEEK", "MONTH"}
	ExpiryCodes = []int{1, 2, 3}
)

// Candle is one 1-minute bar for an index or equity instrument.
type Candle struct {
	Ts       int64   `json:"ts" parquet:"name=ts, type=INT64, convertedtype=INT_64"`
	Datetime string  `json:"datetime" parquet:"name=datetime, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Open     float64 `json:"open" parquet:"name=open, type=DOUBLE"`
	High     float64 `json:"high" parquet:"name=high, type=DOUBLE"`
	Low      float64 `json:"low" parquet:"name=low, type=DOUBLE"`
	Close    float64 `json:"close" parquet:"name=close, type=DOUBLE"`
	Volume   int64   `json:"volume" parquet:"name=volume, type=INT64, convertedtype=INT_64"`
}

// OptionCandle is one 1-minute bar of a rolling option series, tagged with
// the contract attributes that identify it.
type OptionCandle struct {
	Ts           int64   `json:"ts" parquet:"name=ts, type=INT64, convertedtype=INT_64"`
	Datetime     string  `json:"datetime" parquet:"name=datetime, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Underlying   string  `json:"underlying" parquet:"name=underlying, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	OptionType   string  `json:"option_type" parquet:"name=option_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ExpiryType   string  `json:"expiry_type" parquet:"name=expiry_type, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ExpiryCode   int32   `json:"expiry_code" parquet:"name=expiry_code, type=INT32, convertedtype=INT_8"`
	AtmStrike    float64 `json:"atm_strike" parquet:"name=atm_strike, type=DOUBLE"`
	StrikeOffset int32   `json:"strike_offset" parquet:"name=strike_offset, type=INT32, convertedtype=INT_8"`
	Moneyness    string  `json:"moneyness" parquet:"name=moneyness, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Strike       float64 `json:"strike" parquet:"name=strike, type=DOUBLE"`
	Spot         float64 `json:"spot" parquet:"name=spot, type=DOUBLE"`
	Open         float64 `json:"open" parquet:"name=open, type=DOUBLE"`
	High         float64 `json:"high" parquet:"name=high, type=DOUBLE"`
	Low          float64 `json:"low" parquet:"name=low, type=DOUBLE"`
	Close        float64 `json:"close" parquet:"name=close, type=DOUBLE"`
	Volume       int64   `json:"volume" parquet:"name=volume, type=INT64, convertedtype=INT_64"`
	OI           int64   `json:"oi" parquet:"name=oi, type=INT64, convertedtype=INT_64"`
	IV           float64 `json:"iv" parquet:"name=iv, type=DOUBLE"`
}

// IntradayRequest is the POST body for /charts/intraday.
type IntradayRequest struct {
	SecurityID      string `json:"securityId"`
	ExchangeSegment string `json:"exchangeSegment"`
	Instrument      string `json:"instrument"`
	Interval        string `json:"interval"`
	OI              bool   `json:"oi"`
	FromDate        string `json:"fromDate"`
	ToDate          string `json:"toDate"`
}

// RollingRequest is the POST body for /charts/rollingoption. Strike is one
// of Dhan's relative selectors (ATM, ATM+1 .. ATM+10, ATM-1 .. ATM-10).
type RollingRequest struct {
	ExchangeSegment string   `json:"exchangeSegment"`
	Interval        string   `json:"interval"`
	SecurityID      string   `json:"securityId"`
	Instrument      string   `json:"instrument"`
	ExpiryFlag      string   `json:"expiryFlag"`
	ExpiryCode      int      `json:"expiryCode"`
	Strike          string   `json:"strike"`
	OptionType      string   `json:"drvOptionType"`
	RequiredData    []string `json:"requiredData"`
	FromDate        string   `json:"fromDate"`
	ToDate          string   `json:"toDate"`
}

// SeriesData is Dhan's parallel-array candle payload. Entries align by
// index; the auxiliary arrays (volume, oi, iv, strike, spot) may arrive
// shorter than timestamp.
type SeriesData struct {
	Timestamp []float64 `json:"timestamp"`
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []float64 `json:"volume"`
	OI        []float64 `json:"oi"`
	IV        []float64 `json:"iv"`
	Strike    []float64 `json:"strike"`
	Spot      []float64 `json:"spot"`
}

// RollingResponse is the /charts/rollingoption payload, split by option
// side.
type RollingResponse struct {
	Data RollingSides `json:"data"`
}

// RollingSides holds the call and put series of one combination.
type RollingSides struct {
	CE *SeriesData `json:"ce"`
	PE *SeriesData `json:"pe"`
}

// Side returns the series for an option type label (CE or PE).
func (s RollingSides) Side(label string) *SeriesData {
	if label == "CE" {
		return s.CE
	}
	return s.PE
}
