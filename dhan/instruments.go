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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Column aliases for the detailed scrip master. Dhan has shipped the feed
// with several naming conventions; each field is read through its alias
// list in priority order.
var (
	colInstrumentType = []string{"INSTRUMENT_TYPE", "InstrumentType"}
	colSymbol         = []string{"SYMBOL_NAME", "SymbolName"}
	colDisplay        = []string{"DISPLAY_NAME", "DisplayName"}
	colExchange       = []string{"EXCH_ID", "ExchangeId"}
	colSecurityID     = []string{"SEM_SMST_SECURITY_ID", "SecurityID", "SECURITY_ID"}
	colSeries         = []string{"SERIES", "SEM_SERIES"}
)

// Instrument is one row of the scrip master, kept as a raw field map so
// header drift between feed versions does not break lookups.
type Instrument map[string]string

// Field returns the first non-empty value among the given column names.
func (r Instrument) Field(names ...string) string {
	for _, name := range names {
		if v := r[name]; v != "" {
			return v
		}
	}
	return ""
}

// MatchRule describes how one logical index is recognised in the scrip
// master.
type MatchRule struct {
	Preferred []string
	Fallback  []string
	Exclude   []string
	Exchange  string
}

// Instruments downloads and parses Dhan's detailed scrip master CSV.
func (c *Client) Instruments(ctx context.Context) ([]Instrument, error) {
	c.limit.Take()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		Get(c.instrumentURL)
	if err != nil {
		return nil, fmt.Errorf("download instrument master: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.Body()}
	}

	return parseInstruments(bytes.NewReader(resp.Body()))
}

// parseInstruments reads the scrip master CSV into field maps. Rows shorter
// than the header keep whatever columns they have; ragged rows are common
// in the feed.
func parseInstruments(r io.Reader) ([]Instrument, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read instrument master header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []Instrument
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse instrument master: %w", err)
		}
		row := make(Instrument, len(header))
		for i, name := range header {
			if i >= len(rec) {
				break
			}
			row[name] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// matchesKeywords reports whether text contains any include keyword and
// none of the exclude keywords, case-insensitively. An empty include list
// passes every text.
func matchesKeywords(text string, includes, excludes []string) bool {
	upper := strings.ToUpper(text)
	if len(includes) > 0 {
		found := false
		for _, inc := range includes {
			if strings.Contains(upper, strings.ToUpper(inc)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, exc := range excludes {
		if strings.Contains(upper, strings.ToUpper(exc)) {
			return false
		}
	}
	return true
}

// ResolveIndex picks the best INDEX row for a logical name. Preferred
// keyword matches score 2, fallback matches 1, and the home exchange adds
// one more. The first row seen wins ties.
func ResolveIndex(rows []Instrument, name string, rules map[string]MatchRule) (Instrument, error) {
	rule, ok := rules[name]
	if !ok {
		return nil, &ResolutionError{Name: name}
	}

	var best Instrument
	bestScore := 0
	for _, row := range rows {
		if !strings.EqualFold(row.Field(colInstrumentType...), InstrumentIndex) {
			continue
		}
		combined := strings.TrimSpace(row.Field(colSymbol...) + " " + row.Field(colDisplay...))
		if combined == "" {
			continue
		}

		score := 0
		switch {
		case matchesKeywords(combined, rule.Preferred, rule.Exclude):
			score = 2
		case len(rule.Fallback) > 0 && matchesKeywords(combined, rule.Fallback, rule.Exclude):
			score = 1
		default:
			continue
		}
		if strings.EqualFold(row.Field(colExchange...), rule.Exchange) {
			score++
		}

		if score > bestScore {
			best = row
			bestScore = score
		}
	}

	if best == nil {
		return nil, &ResolutionError{Name: name}
	}
	return best, nil
}

// SecurityID extracts the identifier Dhan's candle endpoints use for a
// resolved instrument.
func SecurityID(row Instrument) (string, error) {
	if sid := row.Field(colSecurityID...); sid != "" {
		return sid, nil
	}
	return "", ErrMissingSecurityID
}

// ResolveEquityIDs maps NSE equity symbols to security ids. When a symbol
// is listed under several series the EQ row wins. Symbols absent from the
// master come back in the second return value rather than as an error.
func ResolveEquityIDs(rows []Instrument, symbols []string) (map[string]string, []string) {
	bySymbol := make(map[string]string)
	for _, row := range rows {
		if !strings.EqualFold(row.Field(colExchange...), "NSE") {
			continue
		}
		instr := strings.ToUpper(row.Field(colInstrumentType...))
		if instr != "EQUITY" && instr != "ES" && instr != "EQ" {
			continue
		}
		sym := row.Field(colSymbol...)
		sid := row.Field(colSecurityID...)
		if sym == "" || sid == "" {
			continue
		}
		series := strings.ToUpper(row.Field(colSeries...))
		if _, ok := bySymbol[sym]; ok && series != "EQ" {
			continue
		}
		bySymbol[sym] = sid
	}

	ids := make(map[string]string, len(symbols))
	var missing []string
	for _, sym := range symbols {
		if sid, ok := bySymbol[sym]; ok {
			ids[sym] = sid
		} else {
			missing = append(missing, sym)
		}
	}
	return ids, missing
}
