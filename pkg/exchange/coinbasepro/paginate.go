package coinbasepro

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// pager walks a paginated endpoint one page at a time, following the
// cb-after cursor. Pagination ends when the remote returns a page without a
// cursor or with fewer entries than the page size.
type pager struct {
	client   *Client
	endpoint string
	base     url.Values

	cursor string
	page   []json.RawMessage
	err    error
	done   bool
}

func (c *Client) newPager(endpoint string, base url.Values) *pager {
	return &pager{client: c, endpoint: endpoint, base: base}
}

// Next fetches the following page, returning false once all pages have been
// served or a query failed. Check Err after the loop.
func (p *pager) Next(ctx context.Context) bool {
	if p.done || p.err != nil {
		return false
	}

	query := url.Values{}
	for key, values := range p.base {
		query[key] = values
	}
	query.Set("limit", strconv.Itoa(paginationLimit))
	if p.cursor != "" {
		query.Set("after", p.cursor)
	}

	entries, cursor, err := p.client.queryList(ctx, p.endpoint, query)
	if err != nil {
		p.err = err
		return false
	}

	p.page = entries
	if cursor == "" || len(entries) < paginationLimit {
		p.done = true
	} else {
		p.cursor = cursor
	}
	return true
}

// Page returns the entries fetched by the last successful Next call.
func (p *pager) Page() []json.RawMessage { return p.page }

// Err returns the first query error, if any.
func (p *pager) Err() error { return p.err }

// collectPages drains the pager into one slice.
func (p *pager) collectPages(ctx context.Context) ([]json.RawMessage, error) {
	var all []json.RawMessage
	for p.Next(ctx) {
		all = append(all, p.Page()...)
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	return all, nil
}
