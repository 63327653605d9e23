package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/posts-manager/internal/cache"
)

func TestMode_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  ModeKind
		key   cache.Key
	}{
		{"defaults", DefaultState(), ModePaged, cache.PostsKey(0, 10)},
		{"paged window", State{Skip: 20, Limit: 20, SortOrder: "asc"}, ModePaged, cache.PostsKey(20, 20)},
		{"tag", State{Tag: "love", Skip: 10, Limit: 10, SortOrder: "asc"}, ModeByTag, cache.PostsByTagKey("love")},
		{"tag all means no filter", State{Tag: AllTags, Limit: 10, SortOrder: "asc"}, ModePaged, cache.PostsKey(0, 10)},
		{"search wins over tag", State{Search: "his", Tag: "love", Limit: 10, SortOrder: "asc"}, ModeSearch, cache.SearchKey("his")},
		{"blank search is ignored", State{Search: "   ", Tag: "love", Limit: 10, SortOrder: "asc"}, ModeByTag, cache.PostsByTagKey("love")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.state.Mode()
			assert.Equal(t, tt.want, m.Kind)
			assert.Equal(t, tt.key, m.Key())
			assert.Equal(t, tt.want != ModePaged, m.ClientPaged())
		})
	}
}

func TestEncode_OmitsDefaults(t *testing.T) {
	assert.Empty(t, Encode(DefaultState()).Encode())

	s := State{Skip: 30, Limit: 30, Search: "his mother", Tag: "", SortBy: "title", SortOrder: "desc"}
	v := Encode(s)
	assert.Equal(t, "30", v.Get(ParamSkip))
	assert.Equal(t, "30", v.Get(ParamLimit))
	assert.Equal(t, "his mother", v.Get(ParamSearch))
	assert.Equal(t, "title", v.Get(ParamSortBy))
	assert.Equal(t, "desc", v.Get(ParamSortOrder))
	assert.False(t, v.Has(ParamTag))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	states := []State{
		DefaultState(),
		{Skip: 10, Limit: 10, SortOrder: "asc"},
		{Skip: 0, Limit: 20, Tag: "love", SortBy: "reactions", SortOrder: "desc"},
		{Skip: 60, Limit: 30, Search: "a&b=c", SortBy: "id", SortOrder: "asc"},
	}
	for _, s := range states {
		got, err := ParseLocation("?"+Encode(s).Encode(), nil)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
}

func TestDecode_InvalidValuesFallBack(t *testing.T) {
	v := url.Values{}
	v.Set(ParamSkip, "-5")
	v.Set(ParamLimit, "15")
	v.Set(ParamSortBy, "views")
	v.Set(ParamSortOrder, "sideways")
	v.Set(ParamTag, "history")

	s := Decode(v, nil)
	assert.Equal(t, State{Limit: DefaultLimit, SortOrder: DefaultSortOrder, Tag: "history"}, s)
	assert.NoError(t, s.Validate())
}

func TestParseLocation(t *testing.T) {
	s, err := ParseLocation("https://example.com/posts?skip=10&tag=love#top", nil)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Skip)
	assert.Equal(t, "love", s.Tag)

	s, err = ParseLocation("/posts", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultState(), s)

	_, err = ParseLocation("?skip=%zz", nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, DefaultState().Validate())
	assert.Error(t, State{Skip: -1, Limit: 10, SortOrder: "asc"}.Validate())
	assert.Error(t, State{Limit: 25, SortOrder: "asc"}.Validate())
	assert.Error(t, State{Limit: 10, SortOrder: "up"}.Validate())
}
