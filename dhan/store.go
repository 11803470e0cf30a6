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
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// writeParquetFile writes rows to a fresh temporary file and renames it
// over the target, so a crash mid-write never clobbers the previous
// version.
func writeParquetFile[T any](rows []T, fn string) error {
	if err := os.MkdirAll(filepath.Dir(fn), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", fn, err)
	}

	tmp := fn + ".tmp"
	fh, err := local.NewLocalFileWriter(tmp)
	if err != nil {
		log.Error().Str("OriginalError", err.Error()).Str("FileName", tmp).Msg("cannot create local file")
		return err
	}

	pw, err := writer.NewParquetWriter(fh, new(T), 4)
	if err != nil {
		fh.Close()
		os.Remove(tmp)
		log.Error().Str("OriginalError", err.Error()).Msg("Parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err = pw.Write(rows[i]); err != nil {
			fh.Close()
			os.Remove(tmp)
			log.Error().Str("OriginalError", err.Error()).Msg("Parquet write failed for record")
			return err
		}
	}

	if err = pw.WriteStop(); err != nil {
		fh.Close()
		os.Remove(tmp)
		log.Error().Str("OriginalError", err.Error()).Msg("Parquet write failed")
		return err
	}
	if err = fh.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}

	if err = os.Rename(tmp, fn); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", fn, err)
	}

	log.Info().Int("NumRecords", len(rows)).Str("FileName", fn).Msg("Parquet write finished")
	return nil
}

func readParquetFile[T any](fn string) ([]T, error) {
	fr, err := local.NewLocalFileReader(fn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fn, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(T), 4)
	if err != nil {
		return nil, fmt.Errorf("open parquet reader for %s: %w", fn, err)
	}
	defer pr.ReadStop()

	rows := make([]T, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return rows, nil
}

// SaveCandles writes candle rows to fn, atomically replacing any previous
// version.
func SaveCandles(rows []Candle, fn string) error {
	return writeParquetFile(rows, fn)
}

// LoadCandles reads a previously written candle file. A missing file is
// not an error; it returns no rows.
func LoadCandles(fn string) ([]Candle, error) {
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return nil, nil
	}
	return readParquetFile[Candle](fn)
}

// SaveOptionCandles writes option candle rows to fn, atomically replacing
// any previous version.
func SaveOptionCandles(rows []OptionCandle, fn string) error {
	return writeParquetFile(rows, fn)
}

// LoadOptionCandles reads a previously written option candle file. A
// missing file is not an error; it returns no rows.
func LoadOptionCandles(fn string) ([]OptionCandle, error) {
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		return nil, nil
	}
	return readParquetFile[OptionCandle](fn)
}

// MergeCandles folds incoming rows into existing ones. Duplicate
// timestamps keep the incoming row, and the result is sorted ascending by
// ts.
func MergeCandles(existing, incoming []Candle) []Candle {
	merged := make(map[int64]Candle, len(existing)+len(incoming))
	for _, row := range existing {
		merged[row.Ts] = row
	}
	for _, row := range incoming {
		merged[row.Ts] = row
	}

	out := make([]Candle, 0, len(merged))
	for _, row := range merged {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ts < out[j].Ts
	})
	return out
}

// optionKey is the dedup identity of an option candle. Several strikes and
// expiries coexist at one timestamp, so the timestamp alone is not enough.
type optionKey struct {
	ts         int64
	underlying string
	optionType string
	expiryType string
	expiryCode int32
	strike     float64
}

func keyOf(row OptionCandle) optionKey {
	return optionKey{
		ts:         row.Ts,
		underlying: row.Underlying,
		optionType: row.OptionType,
		expiryType: row.ExpiryType,
		expiryCode: row.ExpiryCode,
		strike:     row.Strike,
	}
}

// MergeOptionCandles folds incoming option rows into existing ones.
// Duplicate contract keys keep the incoming row, and the result is sorted
// by timestamp with the key fields breaking ties so output order is
// deterministic.
func MergeOptionCandles(existing, incoming []OptionCandle) []OptionCandle {
	merged := make(map[optionKey]OptionCandle, len(existing)+len(incoming))
	for _, row := range existing {
		merged[keyOf(row)] = row
	}
	for _, row := range incoming {
		merged[keyOf(row)] = row
	}

	out := make([]OptionCandle, 0, len(merged))
	for _, row := range merged {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ts != b.Ts {
			return a.Ts < b.Ts
		}
		if a.Underlying != b.Underlying {
			return a.Underlying < b.Underlying
		}
		if a.OptionType != b.OptionType {
			return a.OptionType < b.OptionType
		}
		if a.ExpiryType != b.ExpiryType {
			return a.ExpiryType < b.ExpiryType
		}
		if a.ExpiryCode != b.ExpiryCode {
			return a.ExpiryCode < b.ExpiryCode
		}
		return a.Strike < b.Strike
	})
	return out
}

// lastCandleTs returns the newest timestamp among rows.
func lastCandleTs(rows []Candle) (int64, bool) {
	var last int64
	for _, row := range rows {
		if row.Ts > last {
			last = row.Ts
		}
	}
	return last, last != 0
}

// lastOptionTs returns the newest timestamp among rows.
func lastOptionTs(rows []OptionCandle) (int64, bool) {
	var last int64
	for _, row := range rows {
		if row.Ts > last {
			last = row.Ts
		}
	}
	return last, last != 0
}
