package pdfdoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportpdf/internal/domain"
	"reportpdf/internal/testutil/pdffixture"
)

func record(t *testing.T, id, pages int) []byte {
	t.Helper()
	data, err := pdffixture.Record(id, pages)
	require.NoError(t, err)
	return data
}

func assertSizes(t *testing.T, m *Model, data []byte, want []pdffixture.Size) {
	t.Helper()
	got, err := m.PageSizes(data)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].Width, got[i].Width, 0.5, "page %d width", i)
		assert.InDelta(t, want[i].Height, got[i].Height, 0.5, "page %d height", i)
	}
}

func TestLoadCountsPages(t *testing.T) {
	m := New()
	src, err := m.Load(record(t, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, src.PageCount())
	assert.Equal(t, []int{0, 1, 2}, src.PageIndices())
}

func TestLoadRejectsInvalidBytes(t *testing.T) {
	m := New()
	_, err := m.Load([]byte("definitely not a pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrParse))

	_, err = m.Load(nil)
	assert.True(t, errors.Is(err, domain.ErrParse))
}

func TestCopyPagesPreservesRequestedOrder(t *testing.T) {
	m := New()
	src, err := m.Load(record(t, 1, 3))
	require.NoError(t, err)

	pages, err := src.CopyPages([]int{2, 0})
	require.NoError(t, err)

	doc := m.Create()
	for _, p := range pages {
		doc.AddPage(p)
	}
	out, err := doc.Save()
	require.NoError(t, err)
	assertSizes(t, m, out, []pdffixture.Size{pdffixture.Marker(1, 2), pdffixture.Marker(1, 0)})
}

func TestCopyPagesRejectsOutOfRange(t *testing.T) {
	m := New()
	src, err := m.Load(record(t, 0, 1))
	require.NoError(t, err)
	_, err = src.CopyPages([]int{0, 1})
	assert.Error(t, err)
	_, err = src.CopyPages([]int{-1})
	assert.Error(t, err)
}

func TestSaveConcatenatesSourcesInOrder(t *testing.T) {
	m := New()
	doc := m.Create()
	var want []pdffixture.Size
	for id, n := range []int{1, 2, 3} {
		src, err := m.Load(record(t, id, n))
		require.NoError(t, err)
		pages, err := src.CopyPages(src.PageIndices())
		require.NoError(t, err)
		for _, p := range pages {
			doc.AddPage(p)
		}
		for p := 0; p < n; p++ {
			want = append(want, pdffixture.Marker(id, p))
		}
	}
	assert.Equal(t, 6, doc.PageCount())

	out, err := doc.Save()
	require.NoError(t, err)
	assertSizes(t, m, out, want)
}

func TestSaveSingleWholeSourceIsUnchanged(t *testing.T) {
	m := New()
	data := record(t, 0, 2)
	src, err := m.Load(data)
	require.NoError(t, err)
	pages, err := src.CopyPages(src.PageIndices())
	require.NoError(t, err)

	doc := m.Create()
	for _, p := range pages {
		doc.AddPage(p)
	}
	out, err := doc.Save()
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestAddPageIsNotIdempotent(t *testing.T) {
	m := New()
	src, err := m.Load(record(t, 2, 1))
	require.NoError(t, err)
	pages, err := src.CopyPages([]int{0})
	require.NoError(t, err)

	doc := m.Create()
	doc.AddPage(pages[0])
	doc.AddPage(pages[0])

	out, err := doc.Save()
	require.NoError(t, err)
	assertSizes(t, m, out, []pdffixture.Size{pdffixture.Marker(2, 0), pdffixture.Marker(2, 0)})
}

func TestSaveEmptyDocument(t *testing.T) {
	_, err := New().Create().Save()
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestLoadEmptyPageTree(t *testing.T) {
	m := New()
	src, err := m.Load(pdffixture.Empty())
	require.NoError(t, err)
	assert.Equal(t, 0, src.PageCount())
	assert.Empty(t, src.PageIndices())

	pages, err := src.CopyPages(src.PageIndices())
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestSaveSkipsEmptySources(t *testing.T) {
	m := New()
	doc := m.Create()
	for _, data := range [][]byte{record(t, 1, 1), pdffixture.Empty(), record(t, 2, 1)} {
		src, err := m.Load(data)
		require.NoError(t, err)
		pages, err := src.CopyPages(src.PageIndices())
		require.NoError(t, err)
		for _, p := range pages {
			doc.AddPage(p)
		}
	}

	out, err := doc.Save()
	require.NoError(t, err)
	assertSizes(t, m, out, []pdffixture.Size{pdffixture.Marker(1, 0), pdffixture.Marker(2, 0)})
}
