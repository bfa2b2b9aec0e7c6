package schedule

import (
	"context"
)

// Repository persists settings as key/value pairs partitioned by section.
type Repository interface {
	GetSection(ctx context.Context, section string) (map[string]string, error)
	UpsertSection(ctx context.Context, section string, values map[string]string) error
}
