// Package assembler drives a resolved slice sequence into a sink,
// interleaving precomputed metadata writes with blob-store reads while
// keeping output strictly in archive order.
package assembler

import (
	"context"
	"io"

	"zipstream/internal/blobstore"
	"zipstream/internal/zipengine"
)

type fetchResult struct {
	body io.ReadCloser
	err  error
}

// Stream writes the bytes of plan's archive interval rng to w, fetching
// member data from src as needed. It writes strictly in archive order and
// returns as soon as it hits a fatal error or ctx is cancelled; it never
// pads or fabricates bytes to make up a short response.
//
// While a data slice drains into w, Stream prefetches the next data
// slice's blob-store read in the background (single-slice lookahead), so
// fetch latency overlaps with the sink accepting the previous slice's
// bytes instead of stacking serially.
func Stream(ctx context.Context, plan *zipengine.Plan, rng zipengine.Range, src blobstore.Source, w io.Writer) error {
	slices, err := zipengine.Resolve(plan, rng)
	if err != nil {
		return err
	}

	var prefetch chan fetchResult
	var prefetchIdx = -1

	for i, s := range slices {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch s.Kind {
		case zipengine.SliceMeta:
			if _, err := w.Write(s.Meta); err != nil {
				return err
			}

		case zipengine.SliceData:
			var res fetchResult
			if prefetch != nil && prefetchIdx == i {
				res = <-prefetch
				prefetch, prefetchIdx = nil, -1
			} else {
				res = fetchOne(ctx, src, s)
			}
			if res.err != nil {
				return res.err
			}

			if nextIdx, ok := nextDataIndex(slices, i+1); ok {
				prefetch = startFetch(ctx, src, slices[nextIdx])
				prefetchIdx = nextIdx
			}

			_, copyErr := io.Copy(w, res.body)
			closeErr := res.body.Close()
			if copyErr != nil {
				return copyErr
			}
			if closeErr != nil {
				return closeErr
			}
		}
	}

	return nil
}

func fetchOne(ctx context.Context, src blobstore.Source, s zipengine.Slice) fetchResult {
	body, err := src.FetchRange(ctx, s.Source, s.MemberStart, s.MemberEnd)
	return fetchResult{body: body, err: err}
}

func startFetch(ctx context.Context, src blobstore.Source, s zipengine.Slice) chan fetchResult {
	ch := make(chan fetchResult, 1)
	go func() {
		ch <- fetchOne(ctx, src, s)
	}()
	return ch
}

// nextDataIndex scans forward from from for the next SliceData entry's
// index.
func nextDataIndex(slices []zipengine.Slice, from int) (int, bool) {
	for i := from; i < len(slices); i++ {
		if slices[i].Kind == zipengine.SliceData {
			return i, true
		}
	}
	return 0, false
}
