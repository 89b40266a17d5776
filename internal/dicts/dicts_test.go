package dicts

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greengliwice/trees-backend/internal/models"
)

func TestSeedPlan(t *testing.T) {
	items, err := Seed()
	require.NoError(t, err)

	var buf bytes.Buffer
	for _, it := range items {
		fmt.Fprintf(&buf, "%s\t%d\t%s\t%s\n", it.Type, it.Position, it.ID, it.Name)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "seed_plan", buf.Bytes())
}

func TestIDIsStable(t *testing.T) {
	assert.Equal(t, ID(models.DictState, "zdrowe"), ID(models.DictState, " zdrowe "))
	assert.NotEqual(t, ID(models.DictState, "inne/nie wiem"), ID(models.DictSpecies, "inne/nie wiem"))

	// "ł" is precomposed, "ę" decomposed into e + combining ogonek.
	assert.Equal(t, ID(models.DictBadState, "złamane gałęzie"), ID(models.DictBadState, "złamane gałęzie"))
}

func TestSameLabel(t *testing.T) {
	assert.True(t, SameLabel("chore/uszkodzone", "chore/uszkodzone "))
	assert.True(t, SameLabel("gałęzie", "gałęzie"))
	assert.False(t, SameLabel("zdrowe", "chore/uszkodzone"))
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse([]byte("species: [sosna, sosna]"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Parse([]byte("state: ['  ']"))
	assert.ErrorContains(t, err, "empty")

	_, err = Parse([]byte("species: {"))
	assert.Error(t, err)
}

func TestParse_Order(t *testing.T) {
	items, err := Parse([]byte("badState: [b]\nspecies: [x, y]\n"))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, models.DictSpecies, items[0].Type)
	assert.Equal(t, 1, items[1].Position)
	assert.Equal(t, models.DictBadState, items[2].Type)
	assert.Equal(t, 0, items[2].Position)
}
