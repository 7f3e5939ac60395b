package rets

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mlsq/internal/core/domain"
)

const searchBody = `<RETS ReplyCode="0" ReplyText="Success">
<COUNT Records="3"/>
<DELIMITER value="09"/>
<COLUMNS>	ListingKey	ListPrice	Status	</COLUMNS>
<DATA>	L1	250000	Active	</DATA>
<DATA>	L2	310000	Pending	</DATA>
</RETS>`

func testGraph() *domain.MetadataGraph {
	return &domain.MetadataGraph{
		Protocol: domain.ProtocolRETS,
		Resources: []domain.ResourceDescriptor{
			{
				ID:       "Property",
				KeyField: "ListingKey",
				Classes: []domain.ClassDescriptor{
					{ID: "RES", Fields: []domain.FieldDescriptor{{Name: "ListingKey"}, {Name: "ListPrice"}}},
				},
			},
			{
				ID:      "Media",
				Classes: []domain.ClassDescriptor{{ID: "PHOTO"}},
			},
		},
	}
}

func TestSearchParams(t *testing.T) {
	graph := testGraph()

	t.Run("empty filter uses key field", func(t *testing.T) {
		params, err := SearchParams(graph, domain.QuerySpec{ResourceID: "Property", ClassID: "RES"})
		require.NoError(t, err)
		assert.Equal(t, "(ListingKey=*)", params.Get("Query"))
		assert.Equal(t, "Property", params.Get("SearchType"))
		assert.Equal(t, "RES", params.Get("Class"))
		assert.Equal(t, "DMQL2", params.Get("QueryType"))
		assert.Equal(t, "COMPACT-DECODED", params.Get("Format"))
		assert.Equal(t, "1", params.Get("Count"))
		assert.Equal(t, "0", params.Get("StandardNames"))
		assert.Empty(t, params.Get("Select"))
		assert.Empty(t, params.Get("Limit"))
	})

	t.Run("select and limit", func(t *testing.T) {
		params, err := SearchParams(graph, domain.QuerySpec{
			ResourceID: "property",
			ClassID:    "res",
			Filter:     "  (ListPrice=200000+)  ",
			Select:     []string{"ListingKey", "ListPrice"},
			Limit:      25,
		})
		require.NoError(t, err)
		assert.Equal(t, "(ListPrice=200000+)", params.Get("Query"))
		assert.Equal(t, "ListingKey,ListPrice", params.Get("Select"))
		assert.Equal(t, "25", params.Get("Limit"))
		assert.Equal(t, "Property", params.Get("SearchType"))
	})

	t.Run("no key field and no filter", func(t *testing.T) {
		params, err := SearchParams(graph, domain.QuerySpec{ResourceID: "Media", ClassID: "PHOTO"})
		require.NoError(t, err)
		assert.Equal(t, "(ListingId=*)", params.Get("Query"))
		assert.Equal(t, "Media", params.Get("SearchType"))
	})

	t.Run("unknown class", func(t *testing.T) {
		_, err := SearchParams(graph, domain.QuerySpec{ResourceID: "Property", ClassID: "XYZ"})
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "class", ve.Field)
	})
}

func TestSearchParams_EveryDescriptorBuildsAQuery(t *testing.T) {
	graph := testGraph()

	for _, res := range graph.Resources {
		for _, class := range res.Classes {
			t.Run(res.ID+":"+class.ID, func(t *testing.T) {
				spec := domain.QuerySpec{ResourceID: res.ID, ClassID: class.ID}
				params, err := SearchParams(graph, spec)
				require.NoError(t, err)
				assert.NotEmpty(t, params.Get("Query"))
				assert.Equal(t, res.ID, params.Get("SearchType"))
				assert.Equal(t, class.ID, params.Get("Class"))
			})
		}
	}
}

func TestSearch_ReturnsRows(t *testing.T) {
	f, c := loggedIn(t)
	f.setSearch(0, searchBody)

	rs, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{ResourceID: "Property", ClassID: "RES"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ListingKey", "ListPrice", "Status"}, rs.Columns)
	require.Equal(t, 2, rs.Len())
	assert.Equal(t, "310000", rs.Rows[1].Value("ListPrice"))
	assert.Equal(t, 3, rs.Count)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, http.MethodGet, f.lastMethod)
	assert.Equal(t, "(ListingKey=*)", f.lastForm["Query"])
}

func TestSearch_LongQueryIsPosted(t *testing.T) {
	f, c := loggedIn(t)
	f.setSearch(0, searchBody)

	keys := make([]string, 400)
	for i := range keys {
		keys[i] = "L" + strings.Repeat("0", 6)
	}
	filter := "(ListingKey=" + strings.Join(keys, ",") + ")"

	_, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{
		ResourceID: "Property", ClassID: "RES", Filter: filter,
	})
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, http.MethodPost, f.lastMethod)
	assert.Equal(t, filter, f.lastForm["Query"])
	assert.Equal(t, "RES", f.lastForm["Class"])
}

func TestSearch_NoRecordsIsEmpty(t *testing.T) {
	f, c := loggedIn(t)
	f.setSearch(0, `<RETS ReplyCode="20201" ReplyText="No Records Found."/>`)

	rs, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{ResourceID: "Property", ClassID: "RES"})
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, 0, rs.Count)
}

func TestSearch_NotLoggedInReplyIsExpired(t *testing.T) {
	f, c := loggedIn(t)
	f.setSearch(0, `<RETS ReplyCode="20701" ReplyText="Not logged in."/>`)

	_, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{ResourceID: "Property", ClassID: "RES"})
	require.Error(t, err)
	assert.True(t, domain.IsAuthExpired(err))

	var authErr *domain.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, ReplyNotLoggedIn, authErr.ReplyCode)
}

func TestSearch_UnauthorizedIsExpired(t *testing.T) {
	f, c := loggedIn(t)
	f.setSearch(http.StatusUnauthorized, "")

	_, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{ResourceID: "Property", ClassID: "RES"})
	assert.True(t, domain.IsAuthExpired(err))
}

func TestSearch_ServerErrorIsQueryError(t *testing.T) {
	f, c := loggedIn(t)
	f.setSearch(http.StatusInternalServerError, "")

	_, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{ResourceID: "Property", ClassID: "RES"})
	assert.ErrorIs(t, err, domain.ErrQuery)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestSearch_OtherReplyCodeIsParseError(t *testing.T) {
	f, c := loggedIn(t)
	f.setSearch(0, `<RETS ReplyCode="20206" ReplyText="Invalid Query Syntax"/>`)

	_, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{
		ResourceID: "Property", ClassID: "RES", Filter: "(ListPrice=)",
	})
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.False(t, domain.IsAuthExpired(err))
}

func TestSearch_WithoutLogin(t *testing.T) {
	f := newFakeServer(t)
	c := newTestClient(t, f.URL)

	_, err := c.Search(context.Background(), testGraph(), domain.QuerySpec{ResourceID: "Property", ClassID: "RES"})
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, f.paths())
}
