package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskFinishOnce(t *testing.T) {
	tk := New()
	require.Nil(t, tk.Err())
	require.False(t, tk.Superseded())

	first := errors.New("first")
	tk.Finish(first)
	tk.Finish(errors.New("second"))
	tk.Supersede()

	require.ErrorIs(t, tk.Wait(context.Background()), first)
	require.False(t, tk.Superseded())
}

func TestTaskSupersede(t *testing.T) {
	tk := New()
	tk.Supersede()
	tk.Finish(errors.New("late"))

	<-tk.Done()
	require.True(t, tk.Superseded())
	require.NoError(t, tk.Err())
}

func TestTaskWaitContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, New().Wait(ctx), context.DeadlineExceeded)
	require.NoError(t, Completed(nil).Wait(ctx))
}

func TestQueueDrainOrder(t *testing.T) {
	q := NewQueue()
	order := []int{}
	q.Post(func() { order = append(order, 1) })
	q.Post(func() {
		order = append(order, 2)
		q.Post(func() { order = append(order, 3) })
	})

	require.Equal(t, 2, q.Drain())
	require.Equal(t, []int{1, 2}, order)
	require.Equal(t, 1, q.Len())
	require.Equal(t, 1, q.Drain())
	require.Equal(t, []int{1, 2, 3}, order)
	require.Equal(t, 0, q.Drain())
}
