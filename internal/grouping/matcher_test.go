package grouping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

func fill(outcome string, side domain.Side, ts int64) domain.ProcessedFill {
	return domain.ProcessedFill{
		Outcome:       outcome,
		Side:          side,
		TimestampUnix: ts,
		Price:         0.5,
		Amount:        10,
	}
}

func TestSplitLabel(t *testing.T) {
	cases := []struct {
		label  string
		base   string
		suffix string
	}{
		{"Q - Over", "Q", "Over"},
		{"Lakers - total - Over", "Lakers - total", "Over"},
		{"NoSeparator", "", "NoSeparator"},
		{"Q - ", "Q", ""},
		{" - Over", "", "Over"},
	}
	for _, c := range cases {
		base, suffix := splitLabel(c.label)
		assert.Equal(t, c.base, base, c.label)
		assert.Equal(t, c.suffix, suffix, c.label)
	}
}

func TestGroup_BinaryPair(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Q - Over", domain.SideBuy, 100),
		fill("Q - Under", domain.SideSell, 200),
	})

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "Q", g.BaseName)
	assert.True(t, g.IsBinary)
	require.Len(t, g.Fills, 2)

	// Sorted descending: the ts=200 SELL on Under first.
	assert.Equal(t, int64(200), g.Fills[0].TimestampUnix)
	assert.Equal(t, "Over", g.Fills[0].NetAction, "selling Under is net long Over")
	assert.Equal(t, "Over", g.Fills[1].NetAction, "buying Over is net long Over")
}

func TestGroup_SellOnOverIsNetUnder(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Q - Over", domain.SideSell, 100),
		fill("Q - Under", domain.SideBuy, 200),
	})

	require.Len(t, groups, 1)
	for _, f := range groups[0].Fills {
		assert.Equal(t, "Under", f.NetAction)
	}
}

func TestGroup_StandaloneWithoutComplement(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Q - Over", domain.SideBuy, 100),
	})

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "Q - Over", g.BaseName)
	assert.False(t, g.IsBinary)
	// Single suffix: no opposite mapping, fills keep their own suffix.
	assert.Equal(t, "Over", g.Fills[0].NetAction)
}

func TestGroup_NoSeparatorNeverPairs(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Heads", domain.SideBuy, 100),
		fill("Tails", domain.SideBuy, 200),
	})

	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.False(t, g.IsBinary)
	}
}

func TestGroup_SameSuffixNeverPairs(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Q1 - Yes", domain.SideBuy, 100),
		fill("Q2 - Yes", domain.SideBuy, 200),
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "Q1 - Yes", groups[0].BaseName)
	assert.Equal(t, "Q2 - Yes", groups[1].BaseName)
}

func TestGroup_ThreeOutcomes_FirstTwoPair(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Race - Alice", domain.SideBuy, 100),
		fill("Race - Bob", domain.SideBuy, 200),
		fill("Race - Carol", domain.SideBuy, 300),
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "Race", groups[0].BaseName)
	assert.True(t, groups[0].IsBinary)
	require.Len(t, groups[0].Fills, 2)

	assert.Equal(t, "Race - Carol", groups[1].BaseName)
	assert.False(t, groups[1].IsBinary)
}

func TestGroup_UnknownSideKeepsOwnSuffix(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Q - Over", domain.SideUnknown, 100),
		fill("Q - Under", domain.SideBuy, 200),
	})

	require.Len(t, groups, 1)
	for _, f := range groups[0].Fills {
		switch f.TimestampUnix {
		case 100:
			assert.Equal(t, "Over", f.NetAction)
		case 200:
			assert.Equal(t, "Under", f.NetAction)
		}
	}
}

func TestGroup_MergedFillsSortedDescending(t *testing.T) {
	groups := Group([]domain.ProcessedFill{
		fill("Q - Over", domain.SideBuy, 100),
		fill("Q - Over", domain.SideBuy, 300),
		fill("Q - Under", domain.SideBuy, 200),
	})

	require.Len(t, groups, 1)
	fills := groups[0].Fills
	require.Len(t, fills, 3)
	assert.Equal(t, int64(300), fills[0].TimestampUnix)
	assert.Equal(t, int64(200), fills[1].TimestampUnix)
	assert.Equal(t, int64(100), fills[2].TimestampUnix)
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, Group(nil))
}
