package vcf

import (
	"context"
	"io"
	"runtime"
	"sync"
)

// lineItem holds a raw record line ready for decoding.
type lineItem struct {
	Seq    int
	Line   int
	Record int // 1-based record index within the stream
	Text   string
	Err    error
}

// DecodeResult holds the decoded record for a single line.
type DecodeResult struct {
	Seq    int
	Line   int
	Record *Record
	Err    error
}

// DecodeOrdered decodes the reader's remaining records using a pool of
// workers and calls fn for each record in input order. Lines are read
// sequentially; only decoding, which reads the shared header, is parallel.
// If workers is 0, runtime.NumCPU() is used.
//
// A fatal decode error ends the Reader's sequence exactly as Next does: the
// error is returned and every later Next returns it too.
func DecodeOrdered(r *Reader, workers int, fn func(*Record) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fatal error
	results := parallelDecode(ctx, r, workers)
	err := orderedCollect(results, func(res DecodeResult) error {
		if res.Err != nil {
			fatal = res.Err
			return res.Err
		}
		r.report(res.Record, res.Line)
		return fn(res.Record)
	})
	if err != nil {
		cancel()
		for range results {
		}
	}
	// results is closed only after the line reader has exited, so r is no
	// longer shared here.
	if fatal != nil {
		r.err = fatal
	}
	return err
}

// parallelDecode decodes lines from r on workers goroutines. Results are sent
// in arrival order (not sequence order).
func parallelDecode(ctx context.Context, r *Reader, workers int) <-chan DecodeResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var wg sync.WaitGroup
	wg.Add(workers + 1)

	// The reader goroutine joins wg so results closes only once nothing
	// touches r any more.
	items := make(chan lineItem, 2*workers)
	go func() {
		defer wg.Done()
		defer close(items)
		for seq := 0; ; seq++ {
			text, err := r.NextLine()
			if err == io.EOF {
				return
			}
			item := lineItem{Seq: seq, Line: r.LineNumber(), Record: r.RecordCount(), Text: text, Err: err}
			select {
			case items <- item:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	h := r.Header()
	results := make(chan DecodeResult, 2*workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res := DecodeResult{Seq: item.Seq, Line: item.Line, Err: item.Err}
				if item.Err == nil {
					rec, err := Decode(h, item.Text)
					if err != nil {
						res.Err = &ParseError{Line: item.Line, Record: item.Record, Err: err}
					}
					res.Record = rec
				}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// orderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed or fn fails.
func orderedCollect(results <-chan DecodeResult, fn func(DecodeResult) error) error {
	pending := make(map[int]DecodeResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				return err
			}
		}
	}

	return nil
}
