package utils

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool_RunsAllJobs(t *testing.T) {
	pool := NewWorkerPool(3)
	var done atomic.Int32

	for i := 0; i < 20; i++ {
		pool.Submit(func() { done.Add(1) })
	}
	pool.Shutdown()

	assert.Equal(t, int32(20), done.Load())
}

func TestWorkerPool_DefaultsToCPUCount(t *testing.T) {
	pool := NewWorkerPool(0)
	defer pool.Shutdown()

	assert.Greater(t, pool.workers, 0)
}

func TestParallelMap_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1, 0}

	squares := ParallelMap(4, items, func(n int) int { return n * n })

	assert.Equal(t, []int{25, 16, 9, 4, 1, 0}, squares)
	assert.Empty(t, ParallelMap(4, []int{}, func(n int) int { return n }))
}

func TestSliceToSet(t *testing.T) {
	set := SliceToSet([]string{".jpg", ".png", ".jpg"})

	assert.Len(t, set, 2)
	assert.Contains(t, set, ".png")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "en", FirstNonEmpty("", "  ", "en", "zh-tw"))
	assert.Equal(t, "", FirstNonEmpty())
}
