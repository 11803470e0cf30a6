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
	"bytes"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingToken aborts startup before any remote call is attempted.
var ErrMissingToken = errors.New("DHAN_ACCESS_TOKEN is not set")

// ErrMissingSecurityID marks a catalog row that carries no security id
// under any of its known column names.
var ErrMissingSecurityID = errors.New("instrument row has no security id")

// APIError is a non-2xx response from Dhan that is not the benign "no data"
// marker. The raw body is kept for diagnostics.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dhan api error %d: %s", e.StatusCode, bytes.TrimSpace(e.Body))
}

// Oversized reports whether Dhan rejected the request because its date
// range exceeds the endpoint limit. Fetchers react by bisecting the window.
func (e *APIError) Oversized() bool {
	return e.StatusCode == http.StatusBadRequest
}

// ResolutionError means no instrument master row matched a logical name.
type ResolutionError struct {
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no instrument found for %s", e.Name)
}

// MisalignedError reports a response whose OHLC arrays do not line up with
// its timestamp array. Only the affected window or combination is dropped.
type MisalignedError struct {
	From       string
	To         string
	Timestamps int
}

func (e *MisalignedError) Error() string {
	return fmt.Sprintf("misaligned response for %s to %s: ohlc arrays do not match %d timestamps", e.From, e.To, e.Timestamps)
}
