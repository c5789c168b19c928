// Package pagination aggregates Blockfrost's paged list resources.
//
// Blockfrost pages are 1-based, hold at most 100 records and are sorted by
// the order query parameter. The engine sets count, order and page on every
// request, replacing any the resource path carried, so the short-page check
// uses the page size the server actually applied.
//
// There is no total-page header, so the engine walks pages sequentially and
// stops on the first of:
//   - an empty page
//   - the requested limit being reached (the last page is truncated)
//   - a page shorter than the page size
//
// Example usage:
//
//	engine, err := pagination.NewEngine(bfClient, pagination.DefaultConfig())
//	res, err := engine.Aggregate(ctx, auth, pagination.Desc, 250, "/pools")
//	// res.Records holds at most 250 pool ids, res.PagesFetched == 3
//
// A 404 on the first page means the resource has nothing to list and yields
// an empty result. Any other error aborts the aggregation and discards what
// was collected.
package pagination
