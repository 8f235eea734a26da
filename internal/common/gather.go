package common

// DefaultFetchConcurrency bounds concurrent per-symbol requests in one batch.
const DefaultFetchConcurrency = 5

// GatherResult is the outcome of one fetch in a Gather batch.
type GatherResult[T any] struct {
	Key   string
	Value T
	Err   error
}

// Gather calls fetch once per key with at most workers calls in flight and
// returns one result per key in input order. The source's own rate limiter
// still paces the requests.
func Gather[T any](keys []string, workers int, fetch func(key string) (T, error)) []GatherResult[T] {
	if workers < 1 {
		workers = 1
	}

	results := make([]GatherResult[T], len(keys))
	semaphore := make(chan struct{}, workers)
	done := make(chan struct{}, len(keys))

	for i, key := range keys {
		go func(i int, k string) {
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			v, err := fetch(k)
			results[i] = GatherResult[T]{Key: k, Value: v, Err: err}
			done <- struct{}{}
		}(i, key)
	}

	for range keys {
		<-done
	}
	return results
}
