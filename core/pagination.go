// Package core provides the fundamental building blocks of the mango ODM.
// This file implements the pagination layer: page/limit math, paginated
// result assembly, chunked streaming iteration, and field plucking.
package core

import "context"

// DefaultPerPage is the page size used when a caller passes a
// non-positive perPage value.
const DefaultPerPage = 20

// Page is one page of results together with the pagination bookkeeping.
//
// LastPage is always ceil(Total/PerPage) with a minimum of 1, so an empty
// result set still reports one (empty) page.
type Page struct {
	Total    int64       `json:"total"`
	PerPage  int         `json:"perPage"`
	Page     int         `json:"page"`
	LastPage int         `json:"lastPage"`
	Data     []*Document `json:"data"`
}

// lastPageFor computes ceil(total/perPage), never less than 1.
func lastPageFor(total int64, perPage int) int {
	last := int((total + int64(perPage) - 1) / int64(perPage))
	if last < 1 {
		last = 1
	}
	return last
}

// Paginate returns one page of results for the query.
//
// The total is taken from a count over the same query with ordering
// stripped (ordering does not affect a count; every other clause is kept).
// When the count is zero the data query is never issued and an empty page
// is returned. Page validation follows ForPage: a non-positive page fails
// with ErrInvalidArgument.
func (m *Model) Paginate(ctx context.Context, q *Query, page, perPage int) (*Page, error) {
	if page < 1 {
		return nil, invalidArgumentf("page must be a positive integer, got %d", page)
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	total, err := m.Count(ctx, q.withoutSort())
	if err != nil {
		return nil, err
	}
	result := &Page{
		Total:    total,
		PerPage:  perPage,
		Page:     page,
		LastPage: lastPageFor(total, perPage),
		Data:     []*Document{},
	}
	if total == 0 {
		return result, nil
	}

	paged, err := q.Clone().ForPage(page, perPage)
	if err != nil {
		return nil, err
	}
	docs, err := m.FindMany(paged).Run(ctx)
	if err != nil {
		return nil, err
	}
	result.Data = docs
	return result, nil
}

// ChunkFunc receives one chunk of documents. Returning an error stops the
// walk and propagates the error to the Chunk caller.
type ChunkFunc func(docs []*Document) error

// Chunk walks the query result page by page, invoking fn with each
// non-empty chunk. Pages are fetched strictly sequentially: the next page
// is requested only after fn returns. The walk terminates when a fetched
// page is empty; there is no page cutoff, so a result set that keeps
// growing keeps the walk running.
func (m *Model) Chunk(ctx context.Context, q *Query, limit int, fn ChunkFunc) error {
	if limit < 1 {
		return invalidArgumentf("chunk limit must be a positive integer, got %d", limit)
	}
	for page := 1; ; page++ {
		paged, err := q.Clone().ForPage(page, limit)
		if err != nil {
			return err
		}
		docs, err := m.FindMany(paged).Run(ctx)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		if err := fn(docs); err != nil {
			return err
		}
	}
}

// PluckAll returns only the given fields of every document matching the
// query, as plain attribute maps.
func (m *Model) PluckAll(ctx context.Context, q *Query, fields ...string) ([]map[string]any, error) {
	docs, err := m.FindMany(q.Clone().Select(fields...)).Run(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		row := make(map[string]any, len(fields))
		for _, field := range fields {
			if v := doc.Get(field); v != nil {
				row[field] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
