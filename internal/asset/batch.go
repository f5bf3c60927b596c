package asset

import (
	"context"
	"errors"
	"sync"
)

// Request names one source file to admit along with its processing options.
type Request struct {
	Path    string
	Kind    Kind
	Options Options
}

// AdmitBatch admits every request through a fixed pool of workers. The
// returned refs align with requests by index; a failed request leaves a zero
// ref and contributes to the returned ErrorList. Cancellation stops
// dispatching and fails the remaining requests with the context error.
func (s *Store) AdmitBatch(ctx context.Context, requests []Request, workers int, progress func(done, total int)) ([]Ref, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(requests) && len(requests) > 0 {
		workers = len(requests)
	}

	refs := make([]Ref, len(requests))
	failures := make([]*Error, len(requests))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	jobs := make(chan int)

	finish := func(i int, ref Ref, err error) {
		refs[i] = ref
		if err != nil {
			var aerr *Error
			if !errors.As(err, &aerr) {
				aerr = &Error{Path: requests[i].Path, Err: err}
			}
			failures[i] = aerr
		}
		if progress != nil {
			mu.Lock()
			done++
			progress(done, len(requests))
			mu.Unlock()
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				req := requests[i]
				ref, err := s.Admit(ctx, req.Path, req.Kind, req.Options)
				finish(i, ref, err)
			}
		}()
	}

	dispatched := 0
dispatch:
	for i := range requests {
		select {
		case jobs <- i:
			dispatched++
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		for i := dispatched; i < len(requests); i++ {
			finish(i, Ref{}, &Error{Path: requests[i].Path, Err: ctx.Err()})
		}
	}

	var list ErrorList
	for _, f := range failures {
		if f != nil {
			list = append(list, f)
		}
	}
	return refs, list.ErrOrNil()
}
