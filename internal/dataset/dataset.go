package dataset

// Dataset is the normalized interaction log. It is never mutated after
// Normalize returns, so it can be shared between goroutines.
type Dataset struct {
	source  string
	records []InteractionRecord
	stats   NormalizeStats
}

// Len returns the number of surviving records.
func (d *Dataset) Len() int { return len(d.records) }

// Records returns a copy of all records in source order.
func (d *Dataset) Records() []InteractionRecord {
	out := make([]InteractionRecord, len(d.records))
	copy(out, d.records)
	return out
}

// At returns the i-th record.
func (d *Dataset) At(i int) InteractionRecord { return d.records[i] }

// Filter returns, in source order, the first limit records matching pred.
// A limit <= 0 returns every match.
func (d *Dataset) Filter(pred func(InteractionRecord) bool, limit int) []InteractionRecord {
	var out []InteractionRecord
	for _, r := range d.records {
		if !pred(r) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (d *Dataset) Stats() NormalizeStats { return d.stats }

func (d *Dataset) Source() string { return d.source }

// AverageSentiment returns the mean sentiment score, or 0 for an empty set.
func (d *Dataset) AverageSentiment() float64 {
	if len(d.records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range d.records {
		sum += r.SentimentScore
	}
	return sum / float64(len(d.records))
}
