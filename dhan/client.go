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
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/ratelimit"
)

// Client talks to the Dhan v2 REST API. It paces every remote call through
// a shared rate limiter and turns Dhan's "no data" error responses into
// empty results.
type Client struct {
	http          *resty.Client
	baseURL       string
	instrumentURL string
	limit         ratelimit.Limiter
}

// NewClient builds a Client for the given API base. The token rides along
// as Dhan's access-token header on every request. callsPerSecond paces all
// remote calls; Dhan disconnects clients that hammer the candle endpoints.
func NewClient(baseURL, instrumentURL, token string, callsPerSecond int) *Client {
	if callsPerSecond <= 0 {
		callsPerSecond = 2
	}

	httpClient := resty.New().
		SetTimeout(2*time.Minute).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("access-token", token)

	return &Client{
		http:          httpClient,
		baseURL:       strings.TrimRight(baseURL, "/"),
		instrumentURL: instrumentURL,
		limit:         ratelimit.New(callsPerSecond),
	}
}

// dhanError is Dhan's structured error envelope.
type dhanError struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// noData reports Dhan's benign empty-result markers. Holidays, illiquid
// strikes and ranges without open interest come back as DH-905 or DH-907
// error responses rather than empty arrays.
func (e dhanError) noData() bool {
	if e.ErrorCode != "DH-905" && e.ErrorCode != "DH-907" {
		return false
	}
	return strings.Contains(strings.ToLower(e.ErrorMessage), "no data")
}

// post sends one authenticated POST and decodes the result into out. The
// bool is false when Dhan answered with its "no data" marker; out is left
// untouched in that case.
func (c *Client) post(ctx context.Context, path string, payload, out interface{}) (bool, error) {
	c.limit.Take()

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.baseURL + path)
	if err != nil {
		return false, fmt.Errorf("post %s: %w", path, err)
	}

	if resp.IsError() {
		var derr dhanError
		if jsonErr := json.Unmarshal(resp.Body(), &derr); jsonErr == nil && derr.noData() {
			return false, nil
		}
		return false, &APIError{StatusCode: resp.StatusCode(), Body: resp.Body()}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", path, err)
	}
	return true, nil
}

// Intraday fetches 1-minute candles for one instrument and window. A nil
// error with an empty Timestamp array means Dhan had nothing for the range.
func (c *Client) Intraday(ctx context.Context, req IntradayRequest) (*SeriesData, error) {
	var data SeriesData
	ok, err := c.post(ctx, "/charts/intraday", req, &data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &SeriesData{}, nil
	}
	return &data, nil
}

// RollingOption fetches one expiry/strike/side combination of the rolling
// option chain.
func (c *Client) RollingOption(ctx context.Context, req RollingRequest) (*RollingResponse, error) {
	var out RollingResponse
	ok, err := c.post(ctx, "/charts/rollingoption", req, &out)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RollingResponse{}, nil
	}
	return &out, nil
}
