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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// optionSide pairs the drvOptionType request value with the option_type
// label stored in the output.
type optionSide struct {
	Request string
	Label   string
}

var optionSides = []optionSide{
	{Request: "CALL", Label: "CE"},
	{Request: "PUT", Label: "PE"},
}

// rollingFields asks Dhan for the full field set of each combination.
var rollingFields = []string{"open", "high", "low", "close", "volume", "oi", "iv", "strike", "spot"}

// OptionTarget identifies one underlying on the rolling option endpoint.
type OptionTarget struct {
	Underlying      string
	SecurityID      string
	ExchangeSegment string
	StrikeStep      int
}

// StrikeBuckets returns the rolling endpoint's strike selectors: ATM plus
// ten steps either side, 21 in all.
func StrikeBuckets() []string {
	buckets := []string{"ATM"}
	for i := 1; i <= 10; i++ {
		buckets = append(buckets, fmt.Sprintf("ATM+%d", i))
	}
	for i := 1; i <= 10; i++ {
		buckets = append(buckets, fmt.Sprintf("ATM-%d", i))
	}
	return buckets
}

// StrikeOffset parses the signed step count out of a bucket name:
// ATM -> 0, ATM+3 -> 3, ATM-7 -> -7.
func StrikeOffset(bucket string) int32 {
	if bucket == "ATM" {
		return 0
	}
	n, _ := strconv.Atoi(strings.TrimPrefix(bucket, "ATM"))
	return int32(n)
}

// AtmStrike rounds spot to the nearest strike step.
func AtmStrike(spot float64, step int) float64 {
	return math.Round(spot/float64(step)) * float64(step)
}

// Moneyness classifies a strike against the spot. A strike within a hair
// of the rounded ATM strike is ATM; otherwise calls are in the money below
// spot and puts above it.
func Moneyness(optionType string, strike, spot, atm float64) string {
	if math.Abs(strike-atm) < 0.01 {
		return "ATM"
	}
	if optionType == "CE" {
		if strike < spot {
			return "ITM"
		}
		return "OTM"
	}
	if strike > spot {
		return "ITM"
	}
	return "OTM"
}

// FetchOptionCandles walks every expiry/strike/side combination of each
// window in [start, end). A failing combination is logged and skipped; it
// never blocks the remaining combinations. On cancellation the rows
// gathered so far come back with the context error.
func (c *Client) FetchOptionCandles(ctx context.Context, target OptionTarget, start, end time.Time) ([]OptionCandle, error) {
	windows := GenerateWindows(start, end, rollingWindowDays)
	if len(windows) == 0 {
		return nil, nil
	}

	buckets := StrikeBuckets()
	perWindow := len(ExpiryFlags) * len(ExpiryCodes) * len(buckets) * len(optionSides)
	bar := progressbar.Default(int64(len(windows)*perWindow), target.Underlying+" options")

	var rows []OptionCandle
	numCalls := 0
	for _, w := range windows {
		from, to := w.dateRange()
		log.Info().
			Str("Underlying", target.Underlying).
			Str("From", from).
			Str("To", to).
			Int("NumCombinations", perWindow).
			Msg("fetching option window")

		for _, flag := range ExpiryFlags {
			for _, code := range ExpiryCodes {
				for _, bucket := range buckets {
					for _, side := range optionSides {
						if err := ctx.Err(); err != nil {
							return rows, err
						}
						bar.Add(1)
						numCalls++

						got, err := c.fetchOptionCombination(ctx, target, w, flag, code, bucket, side)
						if err != nil {
							if ctx.Err() != nil {
								return rows, ctx.Err()
							}
							log.Error().
								Err(err).
								Str("Underlying", target.Underlying).
								Str("From", from).
								Str("To", to).
								Str("ExpiryFlag", flag).
								Int("ExpiryCode", code).
								Str("Strike", bucket).
								Str("OptionType", side.Label).
								Msg("combination failed, skipping")
							continue
						}
						rows = append(rows, got...)
					}
				}
			}
		}
	}

	log.Info().
		Str("Underlying", target.Underlying).
		Int("NumCalls", numCalls).
		Int("NumRecords", len(rows)).
		Msg("option fetch complete")
	return rows, nil
}

func (c *Client) fetchOptionCombination(ctx context.Context, target OptionTarget, w Window, flag string, code int, bucket string, side optionSide) ([]OptionCandle, error) {
	from, to := w.dateRange()
	resp, err := c.RollingOption(ctx, RollingRequest{
		ExchangeSegment: target.ExchangeSegment,
		Interval:        "1",
		SecurityID:      target.SecurityID,
		Instrument:      InstrumentOptIdx,
		ExpiryFlag:      flag,
		ExpiryCode:      code,
		Strike:          bucket,
		OptionType:      side.Request,
		RequiredData:    rollingFields,
		FromDate:        from,
		ToDate:          to,
	})
	if err != nil {
		return nil, err
	}

	data := resp.Data.Side(side.Label)
	if data == nil || len(data.Timestamp) == 0 {
		return nil, nil
	}
	return optionRows(target, data, w, flag, code, bucket, side.Label)
}

// optionRows flattens one combination's arrays into option candle rows.
// The auxiliary arrays may arrive shorter than timestamp and pad with
// zeros; the OHLC arrays must line up.
func optionRows(target OptionTarget, data *SeriesData, w Window, flag string, code int, bucket, label string) ([]OptionCandle, error) {
	n := len(data.Timestamp)
	if len(data.Open) != n || len(data.High) != n || len(data.Low) != n || len(data.Close) != n {
		from, to := w.dateRange()
		return nil, &MisalignedError{From: from, To: to, Timestamps: n}
	}

	at := func(vals []float64, i int) float64 {
		if i < len(vals) {
			return vals[i]
		}
		return 0
	}

	offset := StrikeOffset(bucket)
	rows := make([]OptionCandle, 0, n)
	for i := 0; i < n; i++ {
		ts := int64(data.Timestamp[i])
		spot := at(data.Spot, i)
		strike := at(data.Strike, i)

		var atm float64
		moneyness := ""
		if spot != 0 {
			atm = AtmStrike(spot, target.StrikeStep)
			if strike != 0 {
				moneyness = Moneyness(label, strike, spot, atm)
			}
		}

		rows = append(rows, OptionCandle{
			Ts:           ts,
			Datetime:     EpochIST(ts),
			Underlying:   target.Underlying,
			OptionType:   label,
			ExpiryType:   flag,
			ExpiryCode:   int32(code),
			AtmStrike:    atm,
			StrikeOffset: offset,
			Moneyness:    moneyness,
			Strike:       strike,
			Spot:         spot,
			Open:         data.Open[i],
			High:         data.High[i],
			Low:          data.Low[i],
			Close:        data.Close[i],
			Volume:       int64(at(data.Volume, i)),
			OI:           int64(at(data.OI, i)),
			IV:           at(data.IV, i),
		})
	}
	return rows, nil
}
