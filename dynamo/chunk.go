package dynamo

// Backend batch limits: BatchWriteItem takes at most 25 write requests,
// BatchGetItem at most 100 keys.
const (
	MaxBatchWrite = 25
	MaxBatchGet   = 100
)

// chunk splits items into order-preserving sub-slices of at most size
// elements. Empty input yields no chunks.
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
