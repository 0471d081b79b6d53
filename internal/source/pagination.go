package source

import (
	"context"
	"errors"
	"fmt"
)

// ErrCursorStalled is returned when a source claims more pages but hands back
// an empty or repeated cursor.
var ErrCursorStalled = errors.New("pagination cursor did not advance")

// PageFetcher fetches the page that starts at cursor.
type PageFetcher[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// WalkPages fetches pages sequentially starting at startCursor and hands each
// one to visit. It stops when a page reports HasMore=false, when visit returns
// an error, or when ctx is done; no page is requested after cancellation.
// It returns the last cursor handed out by the source.
func WalkPages[T any](ctx context.Context, startCursor string, fetch PageFetcher[T], visit func(*Page[T]) error) (string, error) {
	cursor := startCursor
	seen := map[string]struct{}{}
	if cursor != "" {
		seen[cursor] = struct{}{}
	}
	for {
		if err := ctx.Err(); err != nil {
			return cursor, err
		}
		page, err := fetch(ctx, cursor)
		if err != nil {
			return cursor, err
		}
		if page == nil {
			return cursor, nil
		}
		if err := visit(page); err != nil {
			return cursor, err
		}
		if !page.HasMore {
			return page.NextCursor, nil
		}
		if page.NextCursor == "" {
			return cursor, fmt.Errorf("%w: empty cursor after %q", ErrCursorStalled, cursor)
		}
		if _, dup := seen[page.NextCursor]; dup {
			return cursor, fmt.Errorf("%w: cursor %q repeated", ErrCursorStalled, page.NextCursor)
		}
		seen[page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}
}

// DrainPages walks every page and returns all items in order.
func DrainPages[T any](ctx context.Context, fetch PageFetcher[T]) ([]T, error) {
	var all []T
	_, err := WalkPages(ctx, "", fetch, func(p *Page[T]) error {
		all = append(all, p.Items...)
		return nil
	})
	if err != nil {
		return all, err
	}
	return all, nil
}
