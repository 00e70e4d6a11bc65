package searchdoc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalJSON_Flattens(t *testing.T) {
	d := Document{URI: "https://x/description/A", Kind: KindCollection, Fulltext: "one two"}
	d.AddField("title", "A title")
	d.AddField("subject", "s1")
	d.AddField("subject", "s2")
	d.AddField("uri", "clash")
	d.SetPath("/A/B")

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "https://x/description/A", got["uri"])
	assert.Equal(t, "Collection", got["type"])
	assert.Equal(t, []any{"A title"}, got["title"])
	assert.Equal(t, []any{"s1", "s2"}, got["subject"])
	assert.Equal(t, "one two", got["fulltext"])
	assert.Equal(t, "/A/B", got["path"])
	assert.Equal(t, []any{"/A", "/A/B"}, got["pathFacet"])
	assert.Equal(t, float64(1), got["depth"])
	assert.NotContains(t, got, "thumbnail")
}

func TestMarshalJSON_NoPath(t *testing.T) {
	data, err := json.Marshal(Document{URI: "https://x/o"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"uri":"https://x/o"}`, string(data))
}

func TestMarshalJSON_Deterministic(t *testing.T) {
	d := Document{URI: "https://x/o", Thumbnail: "https://x/t.png"}
	for _, f := range []string{"z", "a", "m", "b"} {
		d.AddField(f, f)
	}
	a, err := json.Marshal(d)
	require.NoError(t, err)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "-description-A-B", Slug("https://x/description/A/B"))
	assert.Equal(t, "-a", Slug("/a"))
}

func TestFacetsAndDepth(t *testing.T) {
	assert.Equal(t, []string{"/A", "/A/B", "/A/B/C"}, Facets("/A/B/C"))
	assert.Nil(t, Facets("/"))
	assert.Equal(t, 2, Depth("/A/B/C"))
	assert.Equal(t, 0, Depth("/A"))
	assert.Equal(t, 0, Depth(""))
}

func TestSortedFieldNames(t *testing.T) {
	d := Document{}
	d.AddField("title", "t")
	d.AddField("creator", "c")
	assert.Equal(t, []string{"creator", "title"}, d.SortedFieldNames())
}
