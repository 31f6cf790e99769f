package main

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

// Node is a unit of work started by a Graph.
//
// Err() delivers exactly one value once the node stopped: nil when the node
// finished cleanly, the failure otherwise.
type Node interface {
	Name() string
	Run(context.Context)
	Err() <-chan error
}

type SourceNode[T any] struct {
	name     string
	outChan  chan T
	errChan  chan error
	setup    func() error
	teardown func() error
	step     func() (T, error)
}

var _ Node = &SourceNode[int]{}

func NewSourceNode[T any](name string) *SourceNode[T] {
	return &SourceNode[T]{
		name:     name,
		outChan:  make(chan T),
		errChan:  make(chan error, 1),
		setup:    nil, // set by SetupFunc()
		teardown: nil, // set by TeardownFunc()
		step:     nil, // set by StepFunc()
	}
}

func (n *SourceNode[T]) Name() string {
	return n.name
}

func (n *SourceNode[T]) SetupFunc(setup func() error) {
	n.setup = setup
}

func (n *SourceNode[T]) TeardownFunc(teardown func() error) {
	n.teardown = teardown
}

// StepFunc sets the function producing the next value.
// Returning io.EOF ends the stream without an error.
func (n *SourceNode[T]) StepFunc(step func() (T, error)) {
	n.step = step
}

func (n *SourceNode[T]) Run(ctx context.Context) {
	if n.step == nil {
		close(n.outChan)
		n.errChan <- errors.Errorf("node %s has no step function", n.name)
		return
	}

	go n.loop(ctx)
}

func (n *SourceNode[T]) Err() <-chan error {
	return n.errChan
}

func (n *SourceNode[T]) Stream() <-chan T {
	return n.outChan
}

func (n *SourceNode[T]) loop(ctx context.Context) {
	var err error
	defer func() { n.errChan <- err }()
	defer close(n.outChan)

	if n.setup != nil {
		if err = n.setup(); err != nil {
			err = errors.Wrap(err, "setup error")
			return
		}
	}

	defer func() {
		if n.teardown != nil {
			err = flattenErrors(err, errors.Wrap(n.teardown(), "teardown error"))
		}
	}()

	for {
		var v T
		v, err = n.step()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			return
		}

		err = BlockingSend(ctx, n.outChan, v)
		if err != nil {
			return
		}
	}
}

type SinkNode[T any] struct {
	name     string
	inChan   <-chan T
	errChan  chan error
	setup    func() error
	teardown func() error
	step     func(T) error
}

var _ Node = &SinkNode[int]{}

func NewSinkNode[T any](name string, inChan <-chan T) *SinkNode[T] {
	return &SinkNode[T]{
		name:     name,
		inChan:   inChan,
		errChan:  make(chan error, 1),
		setup:    nil, // set by SetupFunc()
		teardown: nil, // set by TeardownFunc()
		step:     nil, // set by StepFunc()
	}
}

func (n *SinkNode[T]) Name() string {
	return n.name
}

func (n *SinkNode[T]) SetupFunc(setup func() error) {
	n.setup = setup
}

func (n *SinkNode[T]) TeardownFunc(teardown func() error) {
	n.teardown = teardown
}

func (n *SinkNode[T]) StepFunc(step func(T) error) {
	n.step = step
}

func (n *SinkNode[T]) Run(ctx context.Context) {
	if n.step == nil {
		n.errChan <- errors.Errorf("node %s has no step function", n.name)
		return
	}

	go n.loop(ctx)
}

func (n *SinkNode[T]) Err() <-chan error {
	return n.errChan
}

func (n *SinkNode[T]) loop(ctx context.Context) {
	var err error
	defer func() { n.errChan <- err }()

	if n.setup != nil {
		if err = n.setup(); err != nil {
			err = errors.Wrap(err, "setup error")
			return
		}
	}

	defer func() {
		if n.teardown != nil {
			err = flattenErrors(err, errors.Wrap(n.teardown(), "teardown error"))
		}
	}()

	for {
		var v T
		v, err = BlockingRecv(ctx, n.inChan)
		if err != nil {
			// The upstream node closed its stream.
			if errors.Is(err, EndOfStream) {
				err = nil
			}
			return
		}

		err = n.step(v)
		if err != nil {
			return
		}
	}
}
