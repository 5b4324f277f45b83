package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ClicheCounter/internal/detect"
	"github.com/TobiSchelling/ClicheCounter/internal/vocab"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func testVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.New([]string{"over the moon", "park the bus", "at the end of the day"})
	require.NoError(t, err)
	return v
}

func testRows() []Row {
	return []Row{
		{DocumentID: "1", Organization: "Arsenal", Speaker: "Arteta", Published: date("2024-01-02"), Counts: detect.Table{2, 0, 1}, Tokens: 1000},
		{DocumentID: "2", Organization: "Arsenal", Speaker: "Arteta", Published: date("2024-01-09"), Counts: detect.Table{0, 0, 1}, Tokens: 500},
		{DocumentID: "3", Organization: "Burnley", Speaker: "Kompany", Published: date("2024-01-03"), Counts: detect.Table{0, 4, 0}, Tokens: 1000},
		{DocumentID: "4", Organization: "Burnley", Speaker: "Dyche", Published: nil, Counts: detect.Table{1, 0, 0}, Tokens: 200},
	}
}

func TestRateNormalization(t *testing.T) {
	s := Summary{Total: 3, Tokens: 1000}
	assert.Equal(t, 3.0, s.Rate(Per1000))
	assert.Equal(t, 30.0, s.Rate(Per10000))
}

func TestRateWithoutTokens(t *testing.T) {
	for _, total := range []int{0, 1, 1000} {
		s := Summary{Total: total, Tokens: 0}
		r := s.Rate(Per10000)
		assert.Equal(t, 0.0, r)
		assert.False(t, math.IsNaN(r) || math.IsInf(r, 0))
	}
	assert.Equal(t, 0.0, Row{Counts: detect.Table{5}}.Rate(Per1000))
}

func TestSummarizeByOrganization(t *testing.T) {
	sums, err := Summarize(3, testRows(), ByOrganization)
	require.NoError(t, err)
	require.Len(t, sums, 2)

	assert.Equal(t, Key{Organization: "Arsenal"}, sums[0].Key)
	assert.Equal(t, detect.Table{2, 0, 2}, sums[0].Counts)
	assert.Equal(t, 4, sums[0].Total)
	assert.Equal(t, 1500, sums[0].Tokens)
	assert.Equal(t, 2, sums[0].Documents)

	assert.Equal(t, "Burnley", sums[1].Key.Organization)
	assert.Equal(t, 5, sums[1].Total)
	assert.Equal(t, 1200, sums[1].Tokens)
}

func TestSummarizeBySpeaker(t *testing.T) {
	sums, err := Summarize(3, testRows(), BySpeaker)
	require.NoError(t, err)
	require.Len(t, sums, 3)
	assert.Equal(t, "Arsenal / Arteta", sums[0].Key.String())
	assert.Equal(t, "Burnley / Dyche", sums[1].Key.String())
	assert.Equal(t, "Burnley / Kompany", sums[2].Key.String())
}

func TestByBucketSkipsUndatedRows(t *testing.T) {
	acc := NewAccumulator(3, ByBucket(Week))
	for _, r := range testRows() {
		require.NoError(t, acc.Add(r))
	}
	assert.Equal(t, 1, acc.Skipped())

	sums := acc.Summaries()
	require.Len(t, sums, 3)
	assert.Equal(t, Key{Organization: "Arsenal", Period: "2024-01-01"}, sums[0].Key)
	assert.Equal(t, Key{Organization: "Arsenal", Period: "2024-01-08"}, sums[1].Key)
	assert.Equal(t, Key{Organization: "Burnley", Period: "2024-01-01"}, sums[2].Key)
}

func TestAddRejectsWrongTableSize(t *testing.T) {
	acc := NewAccumulator(3, ByOrganization)
	err := acc.Add(Row{DocumentID: "x", Counts: detect.Table{1}})
	assert.Error(t, err)
}

func TestMergeMatchesSingleFold(t *testing.T) {
	rows := testRows()
	whole, err := Summarize(3, rows, BySpeaker)
	require.NoError(t, err)

	left := NewAccumulator(3, BySpeaker)
	right := NewAccumulator(3, BySpeaker)
	for i, r := range rows {
		if i%2 == 0 {
			require.NoError(t, left.Add(r))
		} else {
			require.NoError(t, right.Add(r))
		}
	}
	require.NoError(t, right.Merge(left))
	assert.Equal(t, whole, right.Summaries())

	assert.Error(t, right.Merge(NewAccumulator(2, BySpeaker)))
}

func TestSummarizeIsOrderIndependent(t *testing.T) {
	rows := testRows()
	reversed := make([]Row, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}
	a, err := Summarize(3, rows, BySpeaker)
	require.NoError(t, err)
	b, err := Summarize(3, reversed, BySpeaker)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSummariesAreCopies(t *testing.T) {
	acc := NewAccumulator(3, ByOrganization)
	require.NoError(t, acc.Add(testRows()[0]))
	sums := acc.Summaries()
	sums[0].Counts[0] = 99
	assert.Equal(t, 2, acc.Summaries()[0].Counts[0])
}

func TestPhrases(t *testing.T) {
	v := testVocab(t)
	s := Summary{Counts: detect.Table{2, 0, 1}}
	assert.Equal(t, []PhraseCount{
		{"over the moon", 2},
		{"park the bus", 0},
		{"at the end of the day", 1},
	}, s.Phrases(v))
	assert.InDelta(t, 20.0, Summary{Counts: detect.Table{2, 0, 1}, Tokens: 1000}.PhraseRate(0, Per10000), 1e-9)
}
