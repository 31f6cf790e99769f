package main

import (
	"context"

	"github.com/pkg/errors"
)

var EndOfStream = errors.New("end of stream")

func BlockingSend[T any](ctx context.Context, sendChan chan<- T, sendValue T) error {
	select {
	case <-ctx.Done():
		return context.Canceled

	case sendChan <- sendValue:
		return nil
	}
}

// BlockingRecv returns EndOfStream once recvChan is closed and drained.
func BlockingRecv[T any](ctx context.Context, recvChan <-chan T) (T, error) {
	var recvValue T

	select {
	case <-ctx.Done():
		return recvValue, context.Canceled

	case v, ok := <-recvChan:
		if !ok {
			return recvValue, EndOfStream
		}
		return v, nil
	}
}
