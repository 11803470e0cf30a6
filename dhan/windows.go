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

import "time"

// IST is Indian Standard Time as a fixed UTC+05:30 offset. Dhan reports all
// candle times in IST regardless of where the importer runs.
var IST = time.FixedZone("IST", 5*3600+30*60)

const dhanTimeLayout = "2006-01-02 15:04:05"

// TodayIST returns midnight of the current IST calendar day.
func TodayIST() time.Time {
	return DateOf(time.Now())
}

// DateOf truncates an instant to midnight of its IST calendar day.
func DateOf(t time.Time) time.Time {
	year, month, day := t.In(IST).Date()
	return time.Date(year, month, day, 0, 0, 0, 0, IST)
}

// EpochIST renders epoch seconds as ISO-8601 with the IST offset, e.g.
// 1609472700 -> "2021-01-01T09:15:00+05:30".
func EpochIST(sec int64) string {
	return time.Unix(sec, 0).In(IST).Format(time.RFC3339)
}

// Window is one [From, To) slice of a date range, sized so Dhan accepts the
// request span.
type Window struct {
	From time.Time
	To   time.Time
}

// Days returns the window length in calendar days.
func (w Window) Days() int {
	return int(w.To.Sub(w.From).Hours() / 24)
}

// Bisect splits the window at its midpoint day.
func (w Window) Bisect() (Window, Window) {
	mid := w.From.AddDate(0, 0, w.Days()/2)
	return Window{From: w.From, To: mid}, Window{From: mid, To: w.To}
}

// intradayRange formats the window as the from/to datetime strings the
// intraday endpoint expects. The end date is sent at 23:59:59; the overlap
// with the following window is absorbed by dedup on merge.
func (w Window) intradayRange() (string, string) {
	from := time.Date(w.From.Year(), w.From.Month(), w.From.Day(), 0, 0, 0, 0, IST)
	to := time.Date(w.To.Year(), w.To.Month(), w.To.Day(), 23, 59, 59, 0, IST)
	return from.Format(dhanTimeLayout), to.Format(dhanTimeLayout)
}

// dateRange formats the window as the plain date strings the rolling option
// endpoint expects.
func (w Window) dateRange() (string, string) {
	return w.From.Format("2006-01-02"), w.To.Format("2006-01-02")
}

// GenerateWindows splits [start, end) into consecutive windows of at most
// maxDays days, covering the range exactly once in ascending order.
// start >= end yields no windows.
func GenerateWindows(start, end time.Time, maxDays int) []Window {
	var windows []Window
	cur := start
	for cur.Before(end) {
		nxt := cur.AddDate(0, 0, maxDays)
		if nxt.After(end) {
			nxt = end
		}
		windows = append(windows, Window{From: cur, To: nxt})
		cur = nxt
	}
	return windows
}
