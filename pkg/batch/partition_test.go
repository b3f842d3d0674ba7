package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_ShorterThanSize(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}

	chunks, err := Partition(list, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, list, chunks[0])
}

func TestPartition_SplitsWithRemainder(t *testing.T) {
	list := []int{1, 2, 3, 4, 5}

	chunks, err := Partition(list, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunks)
}

func TestPartition_ExactMultiple(t *testing.T) {
	list := []int{1, 2, 3, 4, 5, 6}

	chunks, err := Partition(list, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.Len(t, chunk, 3)
	}
}

func TestPartition_Empty(t *testing.T) {
	chunks, err := Partition([]string{}, 4)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPartition_InvalidSize(t *testing.T) {
	_, err := Partition([]int{1}, 0)
	assert.Error(t, err)

	_, err = Partition([]int{1}, -3)
	assert.Error(t, err)
}

func TestPartition_PreservesOrderAndLength(t *testing.T) {
	list := make([]int, 57)
	for i := range list {
		list[i] = i
	}

	chunks, err := Partition(list, 10)
	require.NoError(t, err)

	var flattened []int
	for i, chunk := range chunks {
		if i < len(chunks)-1 {
			assert.Len(t, chunk, 10)
		}
		flattened = append(flattened, chunk...)
	}
	assert.Equal(t, list, flattened)
}
