package repository

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-registrar/internal/models"
)

func TestSortSpecOrderBy(t *testing.T) {
	spec := sortSpec{
		columns:      map[string]string{"term": "s.term", "cap": "s.capacity"},
		defaultKey:   "term",
		defaultOrder: "desc",
		tieBreaker:   "s.id",
	}

	assert.Equal(t, "s.term DESC, s.id", spec.orderBy("", ""))
	assert.Equal(t, "s.capacity ASC, s.id", spec.orderBy("cap", "asc"))
	assert.Equal(t, "s.term ASC, s.id", spec.orderBy("drop table", "sideways"))
	assert.Equal(t, "s.capacity DESC, s.id", spec.orderBy("cap", "DESC"))
}

func TestPageClause(t *testing.T) {
	clause, page, size := pageClause(models.ListFilter{Page: 3, PageSize: 25})
	assert.Equal(t, "LIMIT 25 OFFSET 50", clause)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, size)

	clause, _, _ = pageClause(models.ListFilter{})
	assert.Equal(t, "LIMIT 10 OFFSET 0", clause)

	clause, page, _ = pageClause(models.ListFilter{Page: math.MaxInt, PageSize: 100})
	assert.Equal(t, models.MaxPage, page)
	assert.Equal(t, "LIMIT 100 OFFSET 99999900", clause)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%algo%", likePattern("  ALGO "))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%cs\_1%`, likePattern("CS_1"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}
