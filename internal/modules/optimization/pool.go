package optimization

import (
	"context"
	"sync"
)

// chainPool runs annealing chains on a fixed number of goroutines.
type chainPool struct {
	numWorkers int
}

func newChainPool(numWorkers int) *chainPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &chainPool{numWorkers: numWorkers}
}

type chainJob struct {
	index int
}

type chainOutcome struct {
	index  int
	result chainResult
	ran    bool
}

// run executes fn for every chain index in [0, n) and returns the results in
// index order. Cancellation is observed before a chain starts and after it
// returns; fn is expected to return early once ctx is done.
func (p *chainPool) run(ctx context.Context, n int, fn func(index int) chainResult) ([]chainResult, error) {
	if n == 0 {
		return nil, nil
	}

	jobs := make(chan chainJob, n)
	results := make(chan chainOutcome, n)

	workers := p.numWorkers
	if n < workers {
		workers = n
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chainWorker(ctx, jobs, results, fn)
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- chainJob{index: i}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]chainResult, n)
	completed := 0
	for r := range results {
		if r.ran {
			out[r.index] = r.result
			completed++
		}
	}

	if completed < n {
		return nil, ctx.Err()
	}
	return out, nil
}

func chainWorker(ctx context.Context, jobs <-chan chainJob, results chan<- chainOutcome, fn func(int) chainResult) {
	for job := range jobs {
		if ctx.Err() != nil {
			results <- chainOutcome{index: job.index}
			continue
		}
		res := fn(job.index)
		if ctx.Err() != nil {
			results <- chainOutcome{index: job.index}
			continue
		}
		results <- chainOutcome{index: job.index, result: res, ran: true}
	}
}
