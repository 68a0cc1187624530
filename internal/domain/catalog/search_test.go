package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	si, err := NewSearchIndex()
	require.NoError(t, err)
	require.NoError(t, si.Rebuild([]Product{
		{ID: "p1", Name: "Pain complet", Category: "Boulangerie", Description: "pain bio"},
		{ID: "p2", Name: "Lait entier", Category: "Cremerie"},
		{ID: "p3", Name: "Smarties 100S", Category: "Confiseries", Description: "bonbons chocolat"},
	}))
	return si
}

func TestSearchByName(t *testing.T) {
	si := newTestIndex(t)

	hits, err := si.Search("pain", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "p1", hits[0].ProductID)
	assert.Equal(t, "Pain complet", hits[0].Name)
	assert.Equal(t, "Boulangerie", hits[0].Category)
}

func TestSearchToleratesTypo(t *testing.T) {
	si := newTestIndex(t)

	hits, err := si.Search("smartis", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "p3", hits[0].ProductID)
}

func TestSearchByDescription(t *testing.T) {
	si := newTestIndex(t)

	hits, err := si.Search("chocolat", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "p3", hits[0].ProductID)
}

func TestRebuildReplacesContents(t *testing.T) {
	si := newTestIndex(t)

	require.NoError(t, si.Rebuild([]Product{
		{ID: "p9", Name: "Baguette", Category: "Boulangerie"},
	}))

	hits, err := si.Search("lait", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = si.Search("baguette", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p9", hits[0].ProductID)
}
