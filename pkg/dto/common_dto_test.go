package dto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, meta := Paginate(items, PageQuery{Page: 2, Limit: 2}, 10)
	require.Equal(t, []int{3, 4}, page)
	require.Equal(t, PaginationMeta{CurrentPage: 2, TotalPages: 3, TotalItems: 5, Limit: 2}, meta)

	page, meta = Paginate(items, PageQuery{}, 10)
	require.Equal(t, items, page)
	require.Equal(t, 1, meta.TotalPages)

	page, _ = Paginate(items, PageQuery{Page: 9, Limit: 2}, 10)
	require.Empty(t, page)
}
