package service

import (
	"html"
	"math"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/chemclass-api/internal/dto"
)

var strictPolicy = bluemonday.StrictPolicy()

// sanitizeText strips all markup from free text. Entities escaped by the policy are restored so
// plain punctuation round-trips unchanged.
func sanitizeText(value string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(value)))
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func paginationMeta(page, pageSize int, total int64) dto.PaginationMeta {
	meta := dto.PaginationMeta{
		Page:       maxInt(page, 1),
		PageSize:   pageSize,
		TotalItems: total,
	}
	if pageSize > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	} else {
		meta.TotalPages = 1
	}
	return meta
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
