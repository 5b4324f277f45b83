package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/ClicheCounter/internal/detect"
)

func TestRankOrdersByRateThenKey(t *testing.T) {
	sums := []Summary{
		{Key: Key{Organization: "C"}, Total: 1, Tokens: 1000},
		{Key: Key{Organization: "B"}, Total: 2, Tokens: 1000},
		{Key: Key{Organization: "A"}, Total: 1, Tokens: 1000},
		{Key: Key{Organization: "D"}, Total: 9, Tokens: 10},
	}
	ranked := Rank(sums, Per1000, RankOptions{MinTokens: 100})
	require.Len(t, ranked, 3)
	assert.Equal(t, "B", ranked[0].Key.Organization)
	assert.Equal(t, "A", ranked[1].Key.Organization)
	assert.Equal(t, "C", ranked[2].Key.Organization)
	assert.Equal(t, 2.0, ranked[0].Rate)
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Position, ranked[1].Position, ranked[2].Position})
}

func TestRankTopN(t *testing.T) {
	sums := []Summary{
		{Key: Key{Organization: "A"}, Total: 1, Tokens: 100},
		{Key: Key{Organization: "B"}, Total: 2, Tokens: 100},
		{Key: Key{Organization: "C"}, Total: 3, Tokens: 100},
	}
	ranked := Rank(sums, Per10000, RankOptions{TopN: 2})
	require.Len(t, ranked, 2)
	assert.Equal(t, "C", ranked[0].Key.Organization)
	assert.Equal(t, "B", ranked[1].Key.Organization)
}

func TestMostUsed(t *testing.T) {
	v := testVocab(t)

	pc, ok := MostUsed(Summary{Counts: detect.Table{1, 3, 0}}, v)
	require.True(t, ok)
	assert.Equal(t, PhraseCount{"park the bus", 3}, pc)

	// Tie between "over the moon" and "at the end of the day".
	pc, ok = MostUsed(Summary{Counts: detect.Table{2, 0, 2}}, v)
	require.True(t, ok)
	assert.Equal(t, "at the end of the day", pc.Phrase)

	_, ok = MostUsed(Summary{Counts: detect.Table{0, 0, 0}}, v)
	assert.False(t, ok)
}

func TestFavourites(t *testing.T) {
	v := testVocab(t)
	favs := Favourites(Summary{Counts: detect.Table{2, 0, 2}}, v)
	assert.Equal(t, []PhraseCount{
		{"at the end of the day", 2},
		{"over the moon", 2},
	}, favs)
	assert.Empty(t, Favourites(Summary{Counts: detect.Table{0, 0, 0}}, v))
}
