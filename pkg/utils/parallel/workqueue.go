/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package parallel

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// WorkQueue is a thread safe task runner that bounds both concurrency and the
// rate at which tasks start. Results come back in submission order so callers
// merging per-item outcomes stay deterministic.
type WorkQueue struct {
	limiter *rate.Limiter
	workers int
}

// NewWorkQueue instantiates a new WorkQueue
func NewWorkQueue(qps, burst, workers int) *WorkQueue {
	if workers < 1 {
		workers = 1
	}
	return &WorkQueue{
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
		workers: workers,
	}
}

// Do runs all tasks and returns their errors indexed identically to the
// input. A cancelled context stops dispatching further tasks; tasks not run
// report the context's error.
func (q *WorkQueue) Do(ctx context.Context, tasks []func() error) []error {
	errs := make([]error, len(tasks))
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < q.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				errs[i] = tasks[i]()
			}
		}()
	}
	for i := range tasks {
		if err := q.limiter.Wait(ctx); err != nil {
			errs[i] = err
			continue
		}
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return errs
}
