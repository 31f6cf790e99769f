package main

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptureArgs(t *testing.T, sourceId string) *CliArgs {
	t.Helper()

	args := NewCliArgs()
	args.Command = "capture"
	args.SourceId = sourceId
	require.NoError(t, args.Validate())

	return args
}

func TestCaptureMainRejectsZeroSizedSource(t *testing.T) {
	reader := newFakeReader(t, 0, 0, 0, 0)
	sources, writes := stubOpeners(t, reader, nil)

	err := captureMain(context.Background(), newCaptureArgs(t, "0"))
	assert.True(t, errors.Is(err, ErrSourceUnavailable))
	assert.True(t, reader.closed)
	assert.Zero(t, reader.reads)

	assert.Equal(t, []Source{{DeviceId: 0, IsDevice: true}}, *sources)
	assert.Empty(t, *writes)
}

func TestCaptureMainReportsOpenFailure(t *testing.T) {
	sources, _ := stubOpeners(t, nil, nil)

	err := captureMain(context.Background(), newCaptureArgs(t, "rtsp://10.0.0.7:554/stream1"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "failed to open video capture source")
	assert.Contains(t, err.Error(), "no such file")

	assert.Equal(t, []Source{{Path: "rtsp://10.0.0.7:554/stream1"}}, *sources)
}
