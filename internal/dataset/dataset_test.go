package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Event Timestamp,Response Time (s),Sentiment Score,Industry,Customer Segment,Department,User Name,Record ID,Action Taken,Interaction Notes\n"

func readString(t *testing.T, body string) *Dataset {
	t.Helper()
	ds, err := Read("test.csv", strings.NewReader(header+body))
	require.NoError(t, err)
	return ds
}

func TestNormalizeDropsInvalidRows(t *testing.T) {
	ds := readString(t, strings.Join([]string{
		"2024-01-05 10:00:00,120,0.8,Retail,SMB,Support,alice,1,Resolved,fine",
		"not a date,120,0.8,Retail,SMB,Support,bob,2,Resolved,bad ts",
		"2024-01-05 11:00:00,abc,0.8,Retail,SMB,Support,carol,3,Resolved,bad rt",
		"2024-01-05 12:00:00,-5,0.8,Retail,SMB,Support,dave,4,Resolved,negative rt",
		"2024-01-05 13:00:00,60,,Retail,SMB,Support,erin,5,Resolved,no sentiment",
		"2024-01-05 14:00:00,60,NaN,Retail,SMB,Support,frank,6,Resolved,nan sentiment",
		"2024-01-05 15:00:00,NaN,0.1,Retail,SMB,Support,gina,7,Resolved,nan rt",
	}, "\n"))

	st := ds.Stats()
	assert.Equal(t, 7, st.RawRows)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, 1, st.BadTimestamp)
	assert.Equal(t, 3, st.BadResponseTime)
	assert.Equal(t, 2, st.MissingSentiment)
	assert.Equal(t, 6, st.Dropped())
	assert.LessOrEqual(t, ds.Len(), st.RawRows)

	r := ds.At(0)
	assert.Equal(t, "1", r.RecordID)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), r.Timestamp)
	assert.Equal(t, 120.0, r.ResponseTimeSeconds)
	assert.Equal(t, 0.8, r.SentimentScore)
}

func TestNormalizeFillsUnknown(t *testing.T) {
	ds := readString(t, strings.Join([]string{
		"2024-02-01T08:00:00Z,30,0.5,,N/A,Billing,,,,",
		"2024-02-01T09:00:00Z,30,0.5,  ,Enterprise,,,,,",
		"2024-02-01T10:00:00Z,30,0.5",
	}, "\n"))

	require.Equal(t, 3, ds.Len())
	for _, r := range ds.Records() {
		assert.NotEmpty(t, r.Industry)
		assert.NotEmpty(t, r.CustomerSegment)
	}
	assert.Equal(t, UnknownCategory, ds.At(0).Industry)
	assert.Equal(t, UnknownCategory, ds.At(0).CustomerSegment)
	assert.Equal(t, "Enterprise", ds.At(1).CustomerSegment)
	assert.Equal(t, UnknownCategory, ds.At(2).Industry, "short rows are padded")

	assert.Equal(t, "", ds.At(0).UserName, "missing text is empty, not nan")
	assert.Equal(t, "", ds.At(2).InteractionNotes)
	assert.Equal(t, 3, ds.Stats().IndustryFilled)
	assert.Equal(t, 2, ds.Stats().SegmentFilled)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	body := strings.Join([]string{
		"2024-03-01 10:00,10,0.2,Tech,SMB,Support,a,1,Escalated,n1",
		"bad,10,0.2,Tech,SMB,Support,b,2,Escalated,n2",
		"2024-03-01 11:00,20,0.9,,SMB,Sales,c,3,Closed,n3",
	}, "\n")

	a := readString(t, body)
	b := readString(t, body)
	assert.Equal(t, a.Records(), b.Records())
	assert.Equal(t, a.Stats(), b.Stats())
}

func TestNormalizeCoercesText(t *testing.T) {
	ds := readString(t, "2024-03-01 10:00,10,0.2,Tech,SMB, 42 ,  jo  ,007,Escalated,  padded note \n")
	r := ds.At(0)
	assert.Equal(t, "007", r.RecordID)
	assert.Equal(t, "42", r.Department)
	assert.Equal(t, "jo", r.UserName)
	assert.Equal(t, "padded note", r.InteractionNotes)
}

func TestMissingColumnIsFatal(t *testing.T) {
	_, err := Read("bad.csv", strings.NewReader("Event Timestamp,Response Time (s)\n2024-01-01,1\n"))
	require.Error(t, err)

	var dle *DatasetLoadError
	require.True(t, errors.As(err, &dle))
	assert.Equal(t, ColSentiment, dle.Column)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestHeaderBOMIgnored(t *testing.T) {
	ds, err := Read("bom.csv", strings.NewReader("\ufeff"+header+"2024-01-01 00:00,1,0.5,A,B,C,D,E,F,G\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestEmptySource(t *testing.T) {
	_, err := Read("empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	var dle *DatasetLoadError
	assert.True(t, errors.As(err, &dle))
}

func TestFilterPreservesOrderAndLimit(t *testing.T) {
	ds := readString(t, strings.Join([]string{
		"2024-01-01 00:00,1,0.1,A,B,C,D,1,Escalated,n1",
		"2024-01-01 00:01,1,0.9,A,B,C,D,2,Closed,n2",
		"2024-01-01 00:02,1,0.1,A,B,C,D,3,Escalated,n3",
		"2024-01-01 00:03,1,0.1,A,B,C,D,4,Escalated,n4",
	}, "\n"))

	got := ds.Filter(func(r InteractionRecord) bool { return r.ActionTaken == "Escalated" }, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].RecordID)
	assert.Equal(t, "3", got[1].RecordID)

	all := ds.Filter(func(InteractionRecord) bool { return true }, 0)
	assert.Len(t, all, 4)
	assert.InDelta(t, 0.3, ds.AverageSentiment(), 1e-9)
}

func TestRecordsReturnsCopy(t *testing.T) {
	ds := readString(t, "2024-01-01 00:00,1,0.1,A,B,C,D,1,Escalated,n1\n")
	recs := ds.Records()
	recs[0].InteractionNotes = "mutated"
	assert.Equal(t, "n1", ds.At(0).InteractionNotes)
}

func TestCacheKeysOnSourceIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+"2024-01-01 00:00,1,0.1,A,B,C,D,1,x,n1\n"), 0o644))

	c := NewCache()
	a, err := c.Load(path)
	require.NoError(t, err)
	b, err := c.Load(path)
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, os.WriteFile(path, []byte(header+
		"2024-01-01 00:00,1,0.1,A,B,C,D,1,x,n1\n2024-01-01 00:01,1,0.1,A,B,C,D,2,x,n2\n"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	d, err := c.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, a, d)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 2, c.Len())
}
