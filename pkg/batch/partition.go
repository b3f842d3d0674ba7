// Package batch provides helpers for bounded-size bulk operations.
package batch

import "fmt"

// Partition splits items into chunks of at most size elements, preserving
// order. The last chunk may be shorter. An empty input yields no chunks.
func Partition[T any](items []T, size int) ([][]T, error) {
	if size < 1 {
		return nil, fmt.Errorf("partition size must be positive, got %d", size)
	}
	if len(items) == 0 {
		return nil, nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks, nil
}
