package main

import (
	"context"
	"io"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingSource(name string, n int, tornDown *int32) *SourceNode[int] {
	src := NewSourceNode[int](name)

	i := 0
	src.StepFunc(func() (int, error) {
		if n >= 0 && i >= n {
			return 0, io.EOF
		}
		i++
		return i, nil
	})
	src.TeardownFunc(func() error {
		atomic.AddInt32(tornDown, 1)
		return nil
	})

	return src
}

func TestGraphCompletesWhenSourceIsExhausted(t *testing.T) {
	var tornDown int32
	src := newCountingSource("SRC", 5, &tornDown)

	var got []int
	sink := NewSinkNode[int]("SINK", src.Stream())
	sink.StepFunc(func(v int) error {
		got = append(got, v)
		return nil
	})
	sink.TeardownFunc(func() error {
		atomic.AddInt32(&tornDown, 1)
		return nil
	})

	g := NewGraph("TEST")
	g.SetNodes(src, sink)
	g.Run(context.Background())

	require.NoError(t, waitErr(t, g.Err()))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tornDown))
}

func TestGraphReportsFailingNode(t *testing.T) {
	var tornDown int32
	src := newCountingSource("SRC", -1, &tornDown)

	sink := NewSinkNode[int]("SINK", src.Stream())
	sink.StepFunc(func(v int) error {
		if v == 3 {
			return errors.New("boom")
		}
		return nil
	})

	g := NewGraph("TEST")
	g.SetNodes(src, sink)
	g.Run(context.Background())

	err := waitErr(t, g.Err())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Graph TEST failed")
	assert.Contains(t, err.Error(), "[Node SINK: boom]")
	assert.NotContains(t, err.Error(), "Node SRC")
	assert.Equal(t, int32(1), atomic.LoadInt32(&tornDown))
}

func TestGraphStopsCleanlyWhenParentIsCancelled(t *testing.T) {
	var tornDown int32
	src := newCountingSource("SRC", -1, &tornDown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := NewSinkNode[int]("SINK", src.Stream())
	sink.StepFunc(func(v int) error {
		if v == 10 {
			cancel()
		}
		return nil
	})

	g := NewGraph("TEST")
	g.SetNodes(src, sink)
	g.Run(ctx)

	assert.NoError(t, waitErr(t, g.Err()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&tornDown))
}

func TestGraphReportsSetupError(t *testing.T) {
	src := NewSourceNode[int]("SRC")
	src.SetupFunc(func() error { return errors.New("no camera") })
	src.StepFunc(func() (int, error) { return 0, nil })

	sink := NewSinkNode[int]("SINK", src.Stream())
	sink.StepFunc(func(int) error { return nil })

	g := NewGraph("TEST")
	g.SetNodes(src, sink)
	g.Run(context.Background())

	err := waitErr(t, g.Err())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[Node SRC: setup error: no camera]")
}

func TestNodeWithoutStepFails(t *testing.T) {
	src := NewSourceNode[int]("SRC")
	src.Run(context.Background())

	err := waitErr(t, src.Err())
	assert.Error(t, err)

	_, open := <-src.Stream()
	assert.False(t, open)
}

func TestTeardownErrorIsReported(t *testing.T) {
	src := NewSourceNode[int]("SRC")
	src.StepFunc(func() (int, error) { return 0, io.EOF })
	src.TeardownFunc(func() error { return errors.New("device busy") })
	src.Run(context.Background())

	err := waitErr(t, src.Err())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teardown error: device busy")
}

func TestBlockingRecvReportsEndOfStream(t *testing.T) {
	c := make(chan int, 1)
	c <- 7
	close(c)

	v, err := BlockingRecv(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = BlockingRecv(context.Background(), c)
	assert.True(t, errors.Is(err, EndOfStream))
}

func TestBlockingSendHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := BlockingSend(ctx, make(chan int), 1)
	assert.True(t, errors.Is(err, context.Canceled))
}
