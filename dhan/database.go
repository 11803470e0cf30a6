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

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// SaveCandlesToDB mirrors candle rows for one instrument into the candles
// table. It is a no-op unless database.url is configured. Individual row
// failures are logged and skipped; the parquet files remain the source of
// truth for resume.
func SaveCandlesToDB(ctx context.Context, instrument string, rows []Candle) error {
	dbURL := viper.GetString("database.url")
	if dbURL == "" || len(rows) == 0 {
		return nil
	}

	log.Info().Str("Instrument", instrument).Int("NumRecords", len(rows)).Msg("saving to database")
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close(ctx)

	for _, row := range rows {
		_, err := conn.Exec(ctx,
			`INSERT INTO candles (
			"instrument",
			"ts",
			"event_time",
			"open",
			"high",
			"low",
			"close",
			"volume"
		) VALUES (
			$1,
			$2,
			$3,
			$4,
			$5,
			$6,
			$7,
			$8
		) ON CONFLICT ON CONSTRAINT candles_pkey
		DO UPDATE SET
			event_time = EXCLUDED.event_time,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume;`,
			instrument, row.Ts, row.Datetime,
			row.Open, row.High, row.Low, row.Close, row.Volume)
		if err != nil {
			log.Error().Err(err).Str("Instrument", instrument).Int64("Ts", row.Ts).Msg("error saving candle to database")
		}
	}

	return nil
}

// SaveOptionCandlesToDB mirrors option candle rows into the option_candles
// table. It is a no-op unless database.url is configured.
func SaveOptionCandlesToDB(ctx context.Context, rows []OptionCandle) error {
	dbURL := viper.GetString("database.url")
	if dbURL == "" || len(rows) == 0 {
		return nil
	}

	log.Info().Int("NumRecords", len(rows)).Msg("saving option candles to database")
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close(ctx)

	for _, row := range rows {
		_, err := conn.Exec(ctx,
			`INSERT INTO option_candles (
			"underlying",
			"ts",
			"event_time",
			"option_type",
			"expiry_type",
			"expiry_code",
			"strike",
			"atm_strike",
			"strike_offset",
			"moneyness",
			"spot",
			"open",
			"high",
			"low",
			"close",
			"volume",
			"oi",
			"iv"
		) VALUES (
			$1,
			$2,
			$3,
			$4,
			$5,
			$6,
			$7,
			$8,
			$9,
			$10,
			$11,
			$12,
			$13,
			$14,
			$15,
			$16,
			$17,
			$18
		) ON CONFLICT ON CONSTRAINT option_candles_pkey
		DO UPDATE SET
			event_time = EXCLUDED.event_time,
			atm_strike = EXCLUDED.atm_strike,
			strike_offset = EXCLUDED.strike_offset,
			moneyness = EXCLUDED.moneyness,
			spot = EXCLUDED.spot,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			oi = EXCLUDED.oi,
			iv = EXCLUDED.iv;`,
			row.Underlying, row.Ts, row.Datetime,
			row.OptionType, row.ExpiryType, row.ExpiryCode,
			row.Strike, row.AtmStrike, row.StrikeOffset, row.Moneyness, row.Spot,
			row.Open, row.High, row.Low, row.Close, row.Volume, row.OI, row.IV)
		if err != nil {
			log.Error().Err(err).Str("Underlying", row.Underlying).Int64("Ts", row.Ts).Msg("error saving option candle to database")
		}
	}

	return nil
}
