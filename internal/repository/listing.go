package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/course-registrar/internal/models"
)

// sortSpec whitelists the sortable columns of a listing.
type sortSpec struct {
	columns      map[string]string
	defaultKey   string
	defaultOrder string
	tieBreaker   string
}

// orderBy resolves the ORDER BY clause. Unknown keys fall back to the default
// column; any explicit direction other than desc sorts ascending.
func (s sortSpec) orderBy(sortBy, order string) string {
	column, ok := s.columns[sortBy]
	if !ok {
		column = s.columns[s.defaultKey]
	}
	direction := "ASC"
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "":
		direction = strings.ToUpper(s.defaultOrder)
	case "desc":
		direction = "DESC"
	}
	clause := fmt.Sprintf("%s %s", column, direction)
	if s.tieBreaker != "" {
		clause += ", " + s.tieBreaker
	}
	return clause
}

// pageClause renders LIMIT/OFFSET for a normalised filter.
func pageClause(filter models.ListFilter) (string, int, int) {
	page, size := filter.Normalize()
	return fmt.Sprintf("LIMIT %d OFFSET %d", size, (page-1)*size), page, size
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// likePattern builds a case-insensitive LIKE pattern matching keyword
// literally; backslash is the default LIKE escape in Postgres.
func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(keyword))) + "%"
}
