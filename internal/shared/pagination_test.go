package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationDefaultsAndClamps(t *testing.T) {
	meta := NewPagination(0, 0, 45)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, DefaultPerPage, meta.PerPage)
	assert.Equal(t, 3, meta.TotalPages)

	meta = NewPagination(2, 500, 45)
	assert.Equal(t, MaxPerPage, meta.PerPage)
	assert.Equal(t, 1, meta.TotalPages)

	meta = NewPagination(3, 10, 0)
	assert.Equal(t, 0, meta.TotalPages)
}
