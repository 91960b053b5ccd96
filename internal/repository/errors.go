package repository

import (
	"errors"

	"github.com/google/uuid"
)

// ErrUnknownReference indicates a write referenced a row that does not exist, such as an unknown class id.
var ErrUnknownReference = errors.New("referenced record does not exist")

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	result := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

func paginate(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		return -1, 0
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
