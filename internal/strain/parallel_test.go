package strain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	for i := range n {
		ch <- WorkItem{Seq: i, Strain: fmt.Sprintf("S%d", i%3)}
	}
	close(ch)
	return ch
}

func parallelPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return newPipeline(t, "Location,Ref.,S0,S1,S2\n6:101,C,T,G,|\n", Config{})
}

func TestRunParallel_OrderPreservation(t *testing.T) {
	p := parallelPipeline(t)

	results := p.RunParallel(makeItems(200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Result.Err)
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestRunParallel_SingleWorker(t *testing.T) {
	p := parallelPipeline(t)

	results := p.RunParallel(makeItems(30), 1)

	var strains []string
	err := OrderedCollect(results, func(r WorkResult) error {
		strains = append(strains, r.Result.Strain)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, strains, 30)
	for i, s := range strains {
		assert.Equal(t, fmt.Sprintf("S%d", i%3), s)
	}
}

func TestRunParallel_ProducesSequences(t *testing.T) {
	p := parallelPipeline(t)

	want := []string{"ATGTACGT", "AGGTACGT", "ACGTACGT"}
	err := OrderedCollect(p.RunParallel(makeItems(9), 4), func(r WorkResult) error {
		assert.Equal(t, want[r.Seq%3], string(r.Result.Sequence))
		return nil
	})
	require.NoError(t, err)
}

func TestRunParallel_EmptyInput(t *testing.T) {
	p := parallelPipeline(t)

	ch := make(chan WorkItem)
	close(ch)

	count := 0
	err := OrderedCollect(p.RunParallel(ch, 4), func(r WorkResult) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestOrderedCollect_EarlyError(t *testing.T) {
	p := parallelPipeline(t)

	count := 0
	err := OrderedCollect(p.RunParallel(makeItems(100), 4), func(r WorkResult) error {
		count++
		if count == 5 {
			return fmt.Errorf("stop at 5")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 5, count)
}

func TestRunAll_CallbackError(t *testing.T) {
	p := parallelPipeline(t)

	err := p.RunAll(func(r *Result) error {
		return fmt.Errorf("write %s: disk full", r.Strain)
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "S0"))
}

func TestRunAll_NoStrains(t *testing.T) {
	p := newPipeline(t, "Location,Ref.\n6:101,C\n", Config{})

	called := false
	require.NoError(t, p.RunAll(func(*Result) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestOrderedCollect_HoldsEarlyFinishers(t *testing.T) {
	results := make(chan WorkResult, 4)
	for _, seq := range []int{2, 0, 3, 1} {
		results <- WorkResult{Seq: seq, Result: &Result{Strain: string(rune('A' + seq))}}
	}
	close(results)

	var got []string
	require.NoError(t, OrderedCollect(results, func(r WorkResult) error {
		got = append(got, r.Result.Strain)
		return nil
	}))
	assert.Equal(t, []string{"A", "B", "C", "D"}, got)
}
