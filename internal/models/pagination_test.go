package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListFilterNormalize(t *testing.T) {
	cases := []struct {
		name       string
		filter     ListFilter
		page, size int
	}{
		{"defaults", ListFilter{}, 1, DefaultPageSize},
		{"negative page", ListFilter{Page: -3, PageSize: 5}, 1, 5},
		{"negative size", ListFilter{Page: 2, PageSize: -1}, 2, 1},
		{"oversized", ListFilter{Page: 4, PageSize: 1000}, 4, MaxPageSize},
		{"huge page", ListFilter{Page: math.MaxInt, PageSize: 50}, MaxPage, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, size := tc.filter.Normalize()
			assert.Equal(t, tc.page, page)
			assert.Equal(t, tc.size, size)
		})
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, 1, NewPagination(1, 10, 0).TotalPages)
	assert.Equal(t, 1, NewPagination(1, 10, 10).TotalPages)
	assert.Equal(t, 3, NewPagination(2, 10, 21).TotalPages)
}
