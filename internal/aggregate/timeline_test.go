package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ClicheCounter/internal/detect"
)

func TestBucketStart(t *testing.T) {
	// 2024-01-07 is a Sunday, 2024-01-08 a Monday.
	sunday := time.Date(2024, 1, 7, 23, 59, 0, 0, time.UTC)
	monday := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-01", Week.Label(sunday))
	assert.Equal(t, "2024-01-08", Week.Label(monday))
	assert.Equal(t, time.Monday, Week.Start(sunday).Weekday())
	assert.Equal(t, "2024-01", Month.Label(sunday))

	// Local times are bucketed by their UTC instant.
	tz := time.FixedZone("UTC+2", 2*3600)
	assert.Equal(t, "2024-01-01", Week.Label(time.Date(2024, 1, 8, 1, 0, 0, 0, tz)))
}

func TestParseBucket(t *testing.T) {
	b, err := ParseBucket("month")
	require.NoError(t, err)
	assert.Equal(t, Month, b)
	assert.Equal(t, "week", Week.String())
	_, err = ParseBucket("fortnight")
	assert.Error(t, err)
}

func TestTimelineZeroFillsAndRanks(t *testing.T) {
	points := Timeline(testRows(), Week, Per10000)
	// Two organizations x two weeks; the undated row is ignored.
	require.Len(t, points, 4)

	week1, week2 := points[:2], points[2:]
	for _, p := range week1 {
		assert.Equal(t, "2024-01-01", p.Period)
	}

	// Week 1: Burnley 4/1000 beats Arsenal 3/1000.
	assert.Equal(t, "Burnley", week1[0].Organization)
	assert.Equal(t, 1, week1[0].Rank)
	assert.Equal(t, 40.0, week1[0].CumRate)
	assert.Equal(t, "Arsenal", week1[1].Organization)
	assert.Equal(t, 2, week1[1].Rank)

	// Week 2: Burnley has no documents and is zero filled.
	var burnley, arsenal Point
	for _, p := range week2 {
		switch p.Organization {
		case "Burnley":
			burnley = p
		case "Arsenal":
			arsenal = p
		}
	}
	assert.Equal(t, 0, burnley.Total)
	assert.Equal(t, 0, burnley.Tokens)
	assert.Equal(t, 0.0, burnley.Rate)
	assert.Equal(t, 4, burnley.CumTotal)
	assert.Equal(t, 40.0, burnley.CumRate)

	assert.Equal(t, 4, arsenal.CumTotal)
	assert.Equal(t, 1500, arsenal.CumTokens)
	assert.InDelta(t, 26.666, arsenal.CumRate, 0.001)
	assert.Equal(t, 1, burnley.Rank)
	assert.Equal(t, 2, arsenal.Rank)
}

func TestTimelineEmpty(t *testing.T) {
	assert.Empty(t, Timeline(nil, Week, Per10000))
	undated := []Row{{Organization: "A", Counts: detect.Table{1}, Tokens: 10}}
	assert.Empty(t, Timeline(undated, Month, Per10000))
}
