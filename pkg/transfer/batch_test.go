package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchItems(n int) []BatchItem {
	items := make([]BatchItem, n)
	for i := range items {
		items[i] = BatchItem{ContractID: fmt.Sprintf("ti-%d", i), Receiver: "alice", Amount: "1"}
	}
	return items
}

func TestRunBatches_GroupSizes(t *testing.T) {
	var sizes []int
	out := RunBatches(context.Background(), OperationAccept, batchItems(12), 5, func(_ context.Context, group []BatchItem) (string, error) {
		sizes = append(sizes, len(group))
		return fmt.Sprintf("upd-%d", len(sizes)), nil
	}, nil)

	assert.Equal(t, []int{5, 5, 2}, sizes)
	require.Len(t, out.Results, 12)
	assert.Equal(t, 12, out.SuccessCount)
	assert.Equal(t, "upd-1", out.Results[0].UpdateID)
	assert.Equal(t, "upd-3", out.Results[11].UpdateID)
	for i, r := range out.Results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, fmt.Sprintf("ti-%d", i), r.InstructionCid)
	}
}

func TestRunBatches_FailedGroupIsAllOrNothing(t *testing.T) {
	boom := errors.New("command rejected")
	calls := 0
	obs := &recordingObserver{}
	out := RunBatches(context.Background(), OperationAccept, batchItems(12), 5, func(context.Context, []BatchItem) (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return "upd", nil
	}, obs)

	var pattern []bool
	for _, r := range out.Results {
		pattern = append(pattern, r.Success)
	}
	want := []bool{
		true, true, true, true, true,
		false, false, false, false, false,
		true, true,
	}
	assert.Equal(t, want, pattern)
	assert.Equal(t, 7, out.SuccessCount)
	assert.Equal(t, 5, out.FailCount)
	for _, r := range out.Results[5:10] {
		assert.ErrorIs(t, r.Err, boom)
	}
	assert.Len(t, obs.results, 12)
}

func TestRunBatches_DefaultSizeAndEmpty(t *testing.T) {
	var sizes []int
	RunBatches(context.Background(), OperationWithdraw, batchItems(7), 0, func(_ context.Context, group []BatchItem) (string, error) {
		sizes = append(sizes, len(group))
		return "", nil
	}, nil)
	assert.Equal(t, []int{DefaultBatchSize, 2}, sizes)

	out := RunBatches(context.Background(), OperationWithdraw, nil, 5, func(context.Context, []BatchItem) (string, error) {
		t.Fatal("submit must not be called")
		return "", nil
	}, nil)
	assert.Empty(t, out.Results)
}

func TestRunBatches_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	out := RunBatches(ctx, OperationAccept, batchItems(10), 5, func(context.Context, []BatchItem) (string, error) {
		calls++
		cancel()
		return "upd", nil
	}, nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 5, out.SuccessCount)
	assert.Equal(t, 5, out.FailCount)
	assert.ErrorIs(t, out.Results[9].Err, context.Canceled)
}
