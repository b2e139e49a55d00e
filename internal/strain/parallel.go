package strain

import (
	"runtime"
	"sync"
)

// WorkItem is a strain queued for building.
type WorkItem struct {
	Seq    int
	Strain string
}

// WorkResult holds the result of a single strain.
type WorkResult struct {
	Seq    int
	Result *Result
}

// RunParallel builds the queued strains on workers goroutines (NumCPU if
// workers is 0). Results arrive as strains finish, not in queue order;
// OrderedCollect restores the order.
func (p *Pipeline) RunParallel(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{
					Seq:    item.Seq,
					Result: p.Run(item.Strain),
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

// OrderedCollect hands strain results to fn in queue order. A strain that
// finishes early is held until every strain queued before it was handed
// over. If fn fails, the remaining results are discarded so the workers
// can exit, and the error is returned.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	held := make(map[int]WorkResult)
	next := 0

	for r := range results {
		held[r.Seq] = r
		for ready, ok := held[next]; ok; ready, ok = held[next] {
			delete(held, next)
			next++
			if err := fn(ready); err != nil {
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// RunAll builds every strain from Strains on the worker pool and calls fn
// with each result in strain order. Strain failures are reported on the
// results; RunAll only returns an error returned by fn.
func (p *Pipeline) RunAll(fn func(*Result) error) error {
	strains := p.Strains()
	items := make(chan WorkItem, len(strains))
	for i, s := range strains {
		items <- WorkItem{Seq: i, Strain: s}
	}
	close(items)

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, len(strains)))

	return OrderedCollect(p.RunParallel(items, workers), func(r WorkResult) error {
		return fn(r.Result)
	})
}
