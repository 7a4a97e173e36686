package postgres

import (
	"strings"
	"testing"

	"github.com/diagnosis/estate-listings/internal/domain"
	"github.com/diagnosis/estate-listings/internal/repo"
	"github.com/stretchr/testify/assert"
)

var (
	_ repo.UserRepository     = (*UsersRepo)(nil)
	_ repo.PropertyRepository = (*PropertiesRepo)(nil)
)

func TestBuildListQuery_Unfiltered(t *testing.T) {
	q, args := buildListQuery(domain.PropertyFilter{})
	assert.Empty(t, args)
	assert.NotContains(t, q, "status IS NULL")
	assert.True(t, strings.HasSuffix(q, "ORDER BY created_at DESC, id DESC"))
}

func TestBuildListQuery_PublicFilter(t *testing.T) {
	lo, hi := 100000.0, 200000.0
	q, args := buildListQuery(domain.PropertyFilter{
		ActiveOnly: true,
		MinPrice:   &lo,
		MaxPrice:   &hi,
		Location:   "austin",
		Sort:       domain.SortPriceAsc,
	})

	assert.Contains(t, q, "status IS NULL OR status IN ('', 'active')")
	assert.Contains(t, q, "price >= $1")
	assert.Contains(t, q, "price <= $2")
	assert.Contains(t, q, "location ILIKE $3")
	assert.True(t, strings.HasSuffix(q, "ORDER BY price ASC, created_at DESC"))
	assert.Equal(t, []any{100000.0, 200000.0, "%austin%"}, args)
}

func TestBuildListQuery_NumberingSkipsAbsentBounds(t *testing.T) {
	hi := 5.0
	q, args := buildListQuery(domain.PropertyFilter{MaxPrice: &hi, Sort: domain.SortPriceDesc})
	assert.Contains(t, q, "price <= $1")
	assert.NotContains(t, q, "$2")
	assert.Equal(t, []any{5.0}, args)
	assert.True(t, strings.HasSuffix(q, "ORDER BY price DESC, created_at DESC"))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "plain", escapeLike("plain"))
}
