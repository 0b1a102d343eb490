package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	ErrMissingColumn = errors.New("required column not found")
	ErrEmptySource   = errors.New("no header row")
)

// DatasetLoadError reports an interaction log that could not be turned into
// a dataset. It is fatal at startup.
type DatasetLoadError struct {
	Path   string
	Column string
	Err    error
}

func (e *DatasetLoadError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("dataset %s: column %q: %v", e.Path, e.Column, e.Err)
	}
	return fmt.Sprintf("dataset %s: %v", e.Path, e.Err)
}

func (e *DatasetLoadError) Unwrap() error { return e.Err }

// Load reads and normalizes the interaction log at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DatasetLoadError{Path: path, Err: eris.Wrap(err, "open")}
	}
	defer f.Close()

	return Read(path, f)
}

// Read normalizes an interaction log from r. source is used for error
// reporting and Dataset.Source.
func Read(source string, r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &DatasetLoadError{Path: source, Err: ErrEmptySource}
	}
	if err != nil {
		return nil, &DatasetLoadError{Path: source, Err: eris.Wrap(err, "read header")}
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DatasetLoadError{Path: source, Err: eris.Wrapf(err, "read row %d", len(rows)+1)}
		}
		rows = append(rows, row)
	}

	ds, err := Normalize(source, header, rows)
	if err != nil {
		return nil, err
	}

	st := ds.Stats()
	zap.L().Info("dataset loaded",
		zap.String("component", "dataset"),
		zap.String("source", source),
		zap.Int("raw_rows", st.RawRows),
		zap.Int("kept", st.Kept),
		zap.Int("bad_timestamp", st.BadTimestamp),
		zap.Int("bad_response_time", st.BadResponseTime),
		zap.Int("missing_sentiment", st.MissingSentiment),
	)
	return ds, nil
}

// Cache memoizes normalized datasets by source identity: absolute path,
// size and modification time. A changed file is re-read on the next Load.
type Cache struct {
	c *cache.Cache
}

func NewCache() *Cache {
	return &Cache{c: cache.New(cache.NoExpiration, 0)}
}

// Load returns the cached dataset for path if the file is unchanged.
func (c *Cache) Load(path string) (*Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &DatasetLoadError{Path: path, Err: eris.Wrap(err, "resolve path")}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &DatasetLoadError{Path: path, Err: eris.Wrap(err, "stat")}
	}

	key := fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
	if v, ok := c.c.Get(key); ok {
		return v.(*Dataset), nil
	}

	ds, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.c.Set(key, ds, cache.NoExpiration)
	return ds, nil
}

// Len returns the number of cached source versions.
func (c *Cache) Len() int { return c.c.ItemCount() }
