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
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// intradayTarget identifies one instrument on the intraday endpoint.
type intradayTarget struct {
	Label           string
	SecurityID      string
	ExchangeSegment string
	Instrument      string
}

// FetchIndexCandles pulls 1-minute spot candles for one index over
// [start, end). Windows that fail are logged and left out of the result; a
// later run fills the hole because merge re-fetches by date.
func (c *Client) FetchIndexCandles(ctx context.Context, name, securityID string, start, end time.Time) ([]Candle, error) {
	target := intradayTarget{
		Label:           name,
		SecurityID:      securityID,
		ExchangeSegment: SegmentIndex,
		Instrument:      InstrumentIndex,
	}
	return c.fetchIntraday(ctx, target, start, end, true)
}

// FetchEquityCandles pulls 1-minute candles for one NSE equity over
// [start, end).
func (c *Client) FetchEquityCandles(ctx context.Context, symbol, securityID string, start, end time.Time) ([]Candle, error) {
	target := intradayTarget{
		Label:           symbol,
		SecurityID:      securityID,
		ExchangeSegment: SegmentNSEEq,
		Instrument:      InstrumentEquity,
	}
	return c.fetchIntraday(ctx, target, start, end, false)
}

// fetchIntraday walks the range window by window. On cancellation it
// returns the rows gathered so far together with the context error so the
// caller can persist the partial result.
func (c *Client) fetchIntraday(ctx context.Context, target intradayTarget, start, end time.Time, showProgress bool) ([]Candle, error) {
	windows := GenerateWindows(start, end, intradayWindowDays)
	if len(windows) == 0 {
		return nil, nil
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(windows)), target.Label)
	}

	var rows []Candle
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		if bar != nil {
			bar.Add(1)
		}

		got, err := c.fetchIntradayWindow(ctx, target, w)
		if err != nil {
			if ctx.Err() != nil {
				return rows, ctx.Err()
			}
			from, to := w.dateRange()
			log.Error().
				Err(err).
				Str("Instrument", target.Label).
				Str("From", from).
				Str("To", to).
				Msg("window failed, skipping")
			continue
		}
		rows = append(rows, got...)
	}
	return rows, nil
}

// fetchIntradayWindow fetches one window, bisecting when Dhan rejects the
// span as too large. A rejected single-day window propagates the error.
func (c *Client) fetchIntradayWindow(ctx context.Context, target intradayTarget, w Window) ([]Candle, error) {
	from, to := w.intradayRange()
	data, err := c.Intraday(ctx, IntradayRequest{
		SecurityID:      target.SecurityID,
		ExchangeSegment: target.ExchangeSegment,
		Instrument:      target.Instrument,
		Interval:        "1",
		FromDate:        from,
		ToDate:          to,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Oversized() && w.Days() > 1 {
			fromDay, toDay := w.dateRange()
			log.Warn().
				Str("Instrument", target.Label).
				Str("From", fromDay).
				Str("To", toDay).
				Msg("window rejected as too large, bisecting")

			left, right := w.Bisect()
			leftRows, err := c.fetchIntradayWindow(ctx, target, left)
			if err != nil {
				return nil, err
			}
			rightRows, err := c.fetchIntradayWindow(ctx, target, right)
			if err != nil {
				return nil, err
			}
			return append(leftRows, rightRows...), nil
		}
		return nil, err
	}
	return candleRows(data, w)
}

// candleRows flattens Dhan's parallel arrays into candle rows. Indices
// report no volume, so a short or absent volume array pads with zeros; the
// OHLC arrays must line up with the timestamps.
func candleRows(data *SeriesData, w Window) ([]Candle, error) {
	n := len(data.Timestamp)
	if n == 0 {
		return nil, nil
	}
	if len(data.Open) != n || len(data.High) != n || len(data.Low) != n || len(data.Close) != n {
		from, to := w.dateRange()
		return nil, &MisalignedError{From: from, To: to, Timestamps: n}
	}

	rows := make([]Candle, 0, n)
	for i := 0; i < n; i++ {
		ts := int64(data.Timestamp[i])
		var volume int64
		if i < len(data.Volume) {
			volume = int64(data.Volume[i])
		}
		rows = append(rows, Candle{
			Ts:       ts,
			Datetime: EpochIST(ts),
			Open:     data.Open[i],
			High:     data.High[i],
			Low:      data.Low[i],
			Close:    data.Close[i],
			Volume:   volume,
		})
	}
	return rows, nil
}
