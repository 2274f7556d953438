package state

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/adobe/aio-lib-state-go/internal/stateapi"
)

// KeyIterator walks the pages of a key listing. Each iterator owns its
// cursor, so iterators obtained from separate List calls are independent.
// Iteration is not restartable: call List again to start over.
//
// The iterator keeps the context passed to List and uses it for every page
// request made by Next, Pages and All. Cancelling that context stops the
// listing; there is no per-call context.
//
//	it, err := client.List(ctx, &state.ListOptions{Match: "job-*"})
//	if err != nil { ... }
//	for it.Next() {
//		fmt.Println(it.Keys())
//	}
//	if err := it.Err(); err != nil { ... }
type KeyIterator struct {
	ctx       context.Context
	client    *Client
	match     string
	countHint int

	cursor stateapi.Cursor
	keys   []string
	done   bool
	err    error
}

func newKeyIterator(ctx context.Context, client *Client, match string, countHint int) *KeyIterator {
	return &KeyIterator{
		ctx:       ctx,
		client:    client,
		match:     match,
		countHint: countHint,
		cursor:    stateapi.InitialCursor,
	}
}

// Next fetches the next page. It returns false once the server signals the
// end of the listing or a request fails; check Err afterwards.
func (it *KeyIterator) Next() bool {
	if it == nil || it.done || it.err != nil {
		return false
	}

	query := url.Values{
		queryMatch:  {it.match},
		queryCursor: {string(it.cursor)},
	}
	params := map[string]any{"match": it.match, "cursor": string(it.cursor)}
	if it.countHint > 0 {
		query.Set(queryCountHint, strconv.Itoa(it.countHint))
		params["countHint"] = it.countHint
	}

	res, err := it.client.do(it.ctx, opList, "", "", query, params)
	if err != nil {
		it.fail(err)
		return false
	}

	if res.absent {
		it.keys = []string{}
		it.done = true
		return true
	}

	var page stateapi.ListPage
	if err := stateapi.Decode(res.body, &page); err != nil {
		it.fail(newError(KindInternal, fmt.Sprintf("list response could not be decoded: %v", err), cloneDetails(params), err))
		return false
	}
	it.keys = page.Keys
	if it.keys == nil {
		it.keys = []string{}
	}
	it.cursor = page.Cursor
	if it.cursor.Done() {
		it.done = true
	}
	return true
}

func (it *KeyIterator) fail(err error) {
	it.err = err
	it.keys = nil
	it.done = true
}

// Keys returns the keys of the current page.
func (it *KeyIterator) Keys() []string {
	if it == nil {
		return nil
	}
	return it.keys
}

// Err returns the error that stopped the iteration, if any.
func (it *KeyIterator) Err() error {
	if it == nil {
		return nil
	}
	return it.err
}

// Pages adapts the iterator to a range-over-func sequence. A failure is
// yielded once, as the last element.
func (it *KeyIterator) Pages() iter.Seq2[[]string, error] {
	return func(yield func([]string, error) bool) {
		for it.Next() {
			if !yield(it.Keys(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// All drains the iterator and returns every key once, in first-seen order.
// The service may return a key on more than one page.
func (it *KeyIterator) All() ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	for it.Next() {
		for _, k := range it.Keys() {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}
