package runner

import (
	"context"
	"fmt"

	"github.com/micrictor/flowbase/internal/policy"
	"github.com/micrictor/flowbase/internal/prism"
)

type Lister interface {
	ListPage(ctx context.Context, kind string, offset, length int) (prism.Page, error)
}

// Paginate calls fn for every entity of kind, pageSize at a time. The offset
// advances by the number of entities received; listing stops at
// total_matches or on an empty page. An error from fn stops the walk.
func Paginate(ctx context.Context, l Lister, kind string, pageSize int, fn func(policy.Record) error) error {
	offset := 0
	for {
		page, err := l.ListPage(ctx, kind, offset, pageSize)
		if err != nil {
			return fmt.Errorf("list %s at offset %d: %w", kind, offset, err)
		}
		for _, rec := range page.Entities {
			if err := fn(rec); err != nil {
				return err
			}
		}
		offset += len(page.Entities)
		if len(page.Entities) == 0 || offset >= page.TotalMatches {
			return nil
		}
	}
}
