package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// NormalizeStats counts what happened to the raw rows.
type NormalizeStats struct {
	RawRows          int `json:"raw_rows"`
	Kept             int `json:"kept"`
	BadTimestamp     int `json:"bad_timestamp"`
	BadResponseTime  int `json:"bad_response_time"`
	MissingSentiment int `json:"missing_sentiment"`
	IndustryFilled   int `json:"industry_filled"`
	SegmentFilled    int `json:"segment_filled"`
}

// Dropped is the number of raw rows that did not survive.
func (s NormalizeStats) Dropped() int {
	return s.BadTimestamp + s.BadResponseTime + s.MissingSentiment
}

// naTokens are cell values read as missing, in addition to the empty string.
var naTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {},
	"nan": {}, "null": {},
}

func isMissing(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := naTokens[cell]
	return ok
}

// text returns the trimmed cell, or "" if the cell is missing.
func text(cell string) string {
	cell = strings.TrimSpace(cell)
	if isMissing(cell) {
		return ""
	}
	return cell
}

func parseTimestamp(cell string) (time.Time, bool) {
	cell = text(cell)
	if cell == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(cell, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func parseNumber(cell string) (float64, bool) {
	cell = text(cell)
	if cell == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, string) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, col
		}
	}
	return idx, ""
}

func (ix columnIndex) cell(row []string, col string) string {
	i := ix[col]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// Normalize cleans raw rows into a Dataset. Rows are processed in order:
// unparseable timestamps and response times are dropped, missing industry
// and segment become "Unknown", rows without a numeric sentiment are
// dropped, and the remaining identity columns are kept as text.
//
// The only error is a missing column, reported as *DatasetLoadError.
func Normalize(source string, header []string, rows [][]string) (*Dataset, error) {
	idx, missing := indexHeader(header)
	if missing != "" {
		return nil, &DatasetLoadError{Path: source, Column: missing, Err: ErrMissingColumn}
	}

	stats := NormalizeStats{RawRows: len(rows)}
	records := make([]InteractionRecord, 0, len(rows))

	for _, row := range rows {
		ts, ok := parseTimestamp(idx.cell(row, ColTimestamp))
		if !ok {
			stats.BadTimestamp++
			continue
		}

		rt, ok := parseNumber(idx.cell(row, ColResponseTime))
		if !ok || rt < 0 {
			stats.BadResponseTime++
			continue
		}

		industry := text(idx.cell(row, ColIndustry))
		segment := text(idx.cell(row, ColCustomerSegment))

		sentiment, ok := parseNumber(idx.cell(row, ColSentiment))
		if !ok {
			stats.MissingSentiment++
			continue
		}

		// Fill counts only cover rows that survive.
		if industry == "" {
			industry = UnknownCategory
			stats.IndustryFilled++
		}
		if segment == "" {
			segment = UnknownCategory
			stats.SegmentFilled++
		}

		records = append(records, InteractionRecord{
			RecordID:            text(idx.cell(row, ColRecordID)),
			Timestamp:           ts,
			ResponseTimeSeconds: rt,
			SentimentScore:      sentiment,
			Industry:            industry,
			CustomerSegment:     segment,
			Department:          text(idx.cell(row, ColDepartment)),
			UserName:            text(idx.cell(row, ColUserName)),
			ActionTaken:         text(idx.cell(row, ColActionTaken)),
			InteractionNotes:    text(idx.cell(row, ColNotes)),
		})
	}

	stats.Kept = len(records)

	return &Dataset{source: source, records: records, stats: stats}, nil
}
