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
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/viper"
)

// spotTarget is one index whose spot candles are persisted.
type spotTarget struct {
	Name  string // logical name used by the match rules, e.g. NIFTY_50
	Short string // directory name, e.g. nifty
	File  string // file stem, e.g. NIFTY
}

var spotTargets = []spotTarget{
	{Name: "NIFTY_50", Short: "nifty", File: "NIFTY"},
	{Name: "SENSEX", Short: "sensex", File: "SENSEX"},
}

// optionTargetDef is one underlying whose rolling option chain is
// persisted.
type optionTargetDef struct {
	Underlying string // stored in the underlying column, e.g. NIFTY
	MatchName  string // logical name used by the match rules
	Segment    string // derivative segment, NSE_FNO or BSE_FNO
	Short      string // directory name
}

var optionTargets = []optionTargetDef{
	{Underlying: "NIFTY", MatchName: "NIFTY_50", Segment: SegmentNSEFNO, Short: "nifty"},
	{Underlying: "SENSEX", MatchName: "SENSEX", Segment: SegmentBSEFNO, Short: "sensex"},
}

// matchRules assembles the index recognition rules from configuration.
func matchRules() map[string]MatchRule {
	keys := map[string]string{
		"nifty_50": "NIFTY_50",
		"sensex":   "SENSEX",
	}
	rules := make(map[string]MatchRule, len(keys))
	for key, name := range keys {
		rules[name] = MatchRule{
			Preferred: viper.GetStringSlice("indices." + key + ".preferred"),
			Fallback:  viper.GetStringSlice("indices." + key + ".fallback"),
			Exclude:   viper.GetStringSlice("indices." + key + ".exclude"),
			Exchange:  viper.GetString("indices." + key + ".exchange"),
		}
	}
	return rules
}

func configDate(key string) (time.Time, error) {
	raw := viper.GetString(key)
	t, err := time.ParseInLocation("2006-01-02", raw, IST)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return t, nil
}

// resumeDate picks the incremental start date: the IST day holding the
// newest persisted candle, so the tail day is re-fetched and late
// corrections are absorbed by the merge. With no history it falls back to
// the configured start.
func resumeDate(lastTs int64, ok bool, fallback time.Time) time.Time {
	if !ok {
		return fallback
	}
	return DateOf(time.Unix(lastTs, 0))
}

func dataDir() string {
	return viper.GetString("data_dir")
}

func spotFile(target spotTarget) string {
	return filepath.Join(dataDir(), "spot", target.Short, target.File+"_1m.parquet")
}

func optionFile(target optionTargetDef) string {
	return filepath.Join(dataDir(), "options", target.Short, target.Underlying+"_OPTIONS_1m.parquet")
}

func stockFile(symbol string) string {
	return filepath.Join(dataDir(), "stocks", symbol, symbol+"_1m.parquet")
}

// RunSpot refreshes the spot candle files for the configured indices. A
// single index failing to resolve or persist does not stop the others; the
// run only aborts on cancellation or when the instrument master cannot be
// fetched at all.
func RunSpot(ctx context.Context, client *Client) error {
	fallback, err := configDate("spot.start_date")
	if err != nil {
		return err
	}

	log.Info().Msg("downloading instrument master")
	instruments, err := client.Instruments(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("NumRows", len(instruments)).Msg("loaded instrument master")

	rules := matchRules()
	end := TodayIST()

	for _, target := range spotTargets {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := ResolveIndex(instruments, target.Name, rules)
		if err != nil {
			log.Error().Err(err).Str("Index", target.Name).Msg("cannot resolve index, skipping")
			continue
		}
		securityID, err := SecurityID(row)
		if err != nil {
			log.Error().Err(err).Str("Index", target.Name).Msg("cannot resolve index, skipping")
			continue
		}
		log.Info().Str("Index", target.Name).Str("SecurityId", securityID).Msg("resolved index")

		fn := spotFile(target)
		existing, err := LoadCandles(fn)
		if err != nil {
			log.Error().Err(err).Str("FileName", fn).Msg("cannot read existing candles, skipping")
			continue
		}

		last, ok := lastCandleTs(existing)
		start := resumeDate(last, ok, fallback)
		if !start.Before(end) {
			log.Info().Str("Index", target.Name).Msg("already up to date")
			continue
		}
		log.Info().
			Str("Index", target.Name).
			Str("From", start.Format("2006-01-02")).
			Str("To", end.Format("2006-01-02")).
			Msg("fetching spot candles")

		fetched, fetchErr := client.FetchIndexCandles(ctx, target.Name, securityID, start, end)
		if len(fetched) == 0 {
			log.Info().Str("Index", target.Name).Msg("no new candles")
		} else {
			merged := MergeCandles(existing, fetched)
			if err := SaveCandles(merged, fn); err != nil {
				log.Error().Err(err).Str("FileName", fn).Msg("cannot persist candles, skipping")
			} else {
				log.Info().
					Str("Index", target.Name).
					Int("NumFetched", len(fetched)).
					Int("NumRecords", len(merged)).
					Msg("spot candles saved")
				if err := SaveCandlesToDB(ctx, target.File, fetched); err != nil {
					log.Error().Err(err).Str("Index", target.Name).Msg("database mirror failed")
				}
			}
		}

		// fetchErr is only ever a cancellation; everything gathered so
		// far is already on disk at this point.
		if fetchErr != nil {
			return fetchErr
		}
	}
	return nil
}

// RunOptions refreshes the rolling option chain files for the configured
// underlyings.
func RunOptions(ctx context.Context, client *Client) error {
	fallback, err := configDate("options.start_date")
	if err != nil {
		return err
	}

	log.Info().Msg("downloading instrument master")
	instruments, err := client.Instruments(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("NumRows", len(instruments)).Msg("loaded instrument master")

	rules := matchRules()
	end := TodayIST()

	for _, def := range optionTargets {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := ResolveIndex(instruments, def.MatchName, rules)
		if err != nil {
			log.Error().Err(err).Str("Underlying", def.Underlying).Msg("cannot resolve underlying, skipping")
			continue
		}
		securityID, err := SecurityID(row)
		if err != nil {
			log.Error().Err(err).Str("Underlying", def.Underlying).Msg("cannot resolve underlying, skipping")
			continue
		}

		step := viper.GetInt("options.strike_steps." + strings.ToLower(def.Underlying))
		if step <= 0 {
			log.Error().Str("Underlying", def.Underlying).Msg("no strike step configured, skipping")
			continue
		}
		log.Info().
			Str("Underlying", def.Underlying).
			Str("SecurityId", securityID).
			Int("StrikeStep", step).
			Msg("resolved underlying")

		fn := optionFile(def)
		existing, err := LoadOptionCandles(fn)
		if err != nil {
			log.Error().Err(err).Str("FileName", fn).Msg("cannot read existing candles, skipping")
			continue
		}

		last, ok := lastOptionTs(existing)
		start := resumeDate(last, ok, fallback)
		if !start.Before(end) {
			log.Info().Str("Underlying", def.Underlying).Msg("already up to date")
			continue
		}
		log.Info().
			Str("Underlying", def.Underlying).
			Str("From", start.Format("2006-01-02")).
			Str("To", end.Format("2006-01-02")).
			Msg("fetching option candles")

		target := OptionTarget{
			Underlying:      def.Underlying,
			SecurityID:      securityID,
			ExchangeSegment: def.Segment,
			StrikeStep:      step,
		}
		fetched, fetchErr := client.FetchOptionCandles(ctx, target, start, end)
		if len(fetched) == 0 {
			log.Info().Str("Underlying", def.Underlying).Msg("no new candles")
		} else {
			merged := MergeOptionCandles(existing, fetched)
			if err := SaveOptionCandles(merged, fn); err != nil {
				log.Error().Err(err).Str("FileName", fn).Msg("cannot persist candles, skipping")
			} else {
				log.Info().
					Str("Underlying", def.Underlying).
					Int("NumFetched", len(fetched)).
					Int("NumRecords", len(merged)).
					Msg("option candles saved")
				if err := SaveOptionCandlesToDB(ctx, fetched); err != nil {
					log.Error().Err(err).Str("Underlying", def.Underlying).Msg("database mirror failed")
				}
			}
		}

		if fetchErr != nil {
			return fetchErr
		}
	}
	return nil
}

// RunStocks refreshes the per-symbol candle files for the configured NSE
// equities. Symbols missing from the instrument master are reported once
// and skipped.
func RunStocks(ctx context.Context, client *Client) error {
	fallback, err := configDate("stocks.start_date")
	if err != nil {
		return err
	}

	symbols := viper.GetStringSlice("stocks.symbols")
	if limit := viper.GetInt("limit"); limit > 0 && limit < len(symbols) {
		symbols = symbols[:limit]
	}
	if len(symbols) == 0 {
		log.Warn().Msg("no stock symbols configured")
		return nil
	}

	log.Info().Msg("downloading instrument master")
	instruments, err := client.Instruments(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("NumRows", len(instruments)).Msg("loaded instrument master")

	ids, missing := ResolveEquityIDs(instruments, symbols)
	if len(missing) > 0 {
		log.Warn().Strs("Symbols", missing).Msg("no security id found, skipping")
	}

	ordered := make([]string, 0, len(ids))
	for symbol := range ids {
		ordered = append(ordered, symbol)
	}
	sort.Strings(ordered)

	end := TodayIST()
	numSaved := 0
	bar := progressbar.Default(int64(len(ordered)))
	for _, symbol := range ordered {
		securityID := ids[symbol]
		bar.Add(1)
		if err := ctx.Err(); err != nil {
			return err
		}

		fn := stockFile(symbol)
		existing, err := LoadCandles(fn)
		if err != nil {
			log.Error().Err(err).Str("FileName", fn).Msg("cannot read existing candles, skipping")
			continue
		}

		last, ok := lastCandleTs(existing)
		start := resumeDate(last, ok, fallback)
		if !start.Before(end) {
			log.Info().Str("Symbol", symbol).Msg("already up to date")
			continue
		}
		log.Info().
			Str("Symbol", symbol).
			Str("SecurityId", securityID).
			Str("From", start.Format("2006-01-02")).
			Str("To", end.Format("2006-01-02")).
			Msg("fetching stock candles")

		fetched, fetchErr := client.FetchEquityCandles(ctx, symbol, securityID, start, end)
		if len(fetched) == 0 {
			log.Info().Str("Symbol", symbol).Msg("no new candles")
		} else {
			merged := MergeCandles(existing, fetched)
			if err := SaveCandles(merged, fn); err != nil {
				log.Error().Err(err).Str("FileName", fn).Msg("cannot persist candles, skipping")
			} else {
				numSaved++
				log.Info().
					Str("Symbol", symbol).
					Int("NumFetched", len(fetched)).
					Int("NumRecords", len(merged)).
					Msg("stock candles saved")
				if err := SaveCandlesToDB(ctx, symbol, fetched); err != nil {
					log.Error().Err(err).Str("Symbol", symbol).Msg("database mirror failed")
				}
			}
		}

		if fetchErr != nil {
			return fetchErr
		}
	}

	log.Info().Int("NumSymbols", len(ordered)).Int("NumSaved", numSaved).Msg("stock import finished")
	return nil
}
