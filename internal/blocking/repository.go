package blocking

import (
	"context"
	"errors"
)

var (
	ErrBlockNotFound  = errors.New("blocked slot not found")
	ErrDuplicateBlock = errors.New("an active block already exists for this slot")
)

type ListFilter struct {
	BlockType *BlockType
	IsActive  *bool
}

// UpdatePatch carries the mutable fields of a rule; nil means unchanged.
type UpdatePatch struct {
	IsActive *bool
	Reason   *string
}

type Repository interface {
	Create(ctx context.Context, b *BlockedSlot) (*BlockedSlot, error)
	GetByID(ctx context.Context, id int64) (*BlockedSlot, error)
	List(ctx context.Context, filter ListFilter) ([]BlockedSlot, error)
	ListActive(ctx context.Context) ([]BlockedSlot, error)
	Update(ctx context.Context, id int64, patch UpdatePatch) (*BlockedSlot, error)
	Delete(ctx context.Context, id int64) error
}
