package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var TeardownTimedOut = errors.New("teardown timed out")

type namedNodes map[string]Node

type Graph struct {
	name               string
	isRunningMu        sync.Mutex
	nodes              namedNodes
	errChan            chan error
	minTeardownTimeout time.Duration
}

// The Graph is a Node.
//
// This allows for nesting Graphs inside Graphs.
var _ Node = &Graph{}

func NewGraph(name string) *Graph {
	return &Graph{
		name:               name,
		isRunningMu:        sync.Mutex{},
		nodes:              make(namedNodes, 0),
		errChan:            make(chan error, 1),
		minTeardownTimeout: 1 * time.Second,
	}
}

func (g *Graph) Name() string {
	return g.name
}

func (g *Graph) SetNode(node Node) {
	g.isRunningMu.Lock()
	defer g.isRunningMu.Unlock()

	g.nodes[node.Name()] = node
}

func (g *Graph) SetNodes(nodes ...Node) {
	g.isRunningMu.Lock()
	defer g.isRunningMu.Unlock()

	for _, node := range nodes {
		g.nodes[node.Name()] = node
	}
}

func (g *Graph) Run(ctx context.Context) {
	go g.loop(ctx)
}

func (g *Graph) Err() <-chan error {
	return g.errChan
}

func (g *Graph) teardownTimeoutForNNodes(n int) time.Duration {
	if n <= 0 {
		return g.minTeardownTimeout
	}

	return g.minTeardownTimeout + time.Duration(math.Log10(float64(n))*float64(time.Second))
}

type nodeResult struct {
	name string
	err  error
}

func (g *Graph) loop(parentCtx context.Context) {
	g.isRunningMu.Lock()
	defer g.isRunningMu.Unlock()

	logger := logger.WithField("graph", g.name)

	nodeCtx, cancelNodeCtx := context.WithCancel(parentCtx)
	defer cancelNodeCtx()

	results := make(chan nodeResult, len(g.nodes))
	for nodeName, node := range g.nodes {
		node.Run(nodeCtx)
		go func(name string, node Node) {
			results <- nodeResult{name: name, err: <-node.Err()}
		}(nodeName, node)
	}

	var (
		running     = len(g.nodes)
		nodeErrs    = make(map[string]error, 0)
		parentDone  = parentCtx.Done()
		teardownErr error
		timeout     <-chan time.Time
	)

	startTeardown := func() {
		if timeout != nil {
			return
		}
		logger.Tracef("Tearing down %d running node(s) ...", running)
		timeout = time.After(g.teardownTimeoutForNNodes(running))
		cancelNodeCtx()
	}

	for running > 0 && teardownErr == nil {
		select {
		case <-parentDone:
			parentDone = nil
			startTeardown()

		case <-timeout:
			logger.Warn("Teardown timeout.")
			teardownErr = TeardownTimedOut

		case r := <-results:
			running--
			if r.err == nil || (errors.Is(r.err, context.Canceled) && nodeCtx.Err() != nil) {
				logger.WithField("node", r.name).Tracef("Node stopped.")
				continue
			}

			logger.
				WithField("node", r.name).
				WithError(r.err).
				Errorf("Node error")
			nodeErrs[r.name] = r.err
			startTeardown()
		}
	}

	var errMsg string
	if teardownErr != nil {
		errMsg += fmt.Sprintf("[TearDown: %s]", teardownErr.Error())
	}

	failedNodes := make([]string, 0, len(nodeErrs))
	for nodeName := range nodeErrs {
		failedNodes = append(failedNodes, nodeName)
	}
	sort.Strings(failedNodes)
	for _, nodeName := range failedNodes {
		errMsg += fmt.Sprintf("[Node %s: %v]", nodeName, nodeErrs[nodeName])
	}

	var err error = nil
	if errMsg != "" {
		err = errors.Errorf("Graph %s failed: %s", g.name, errMsg)
	}
	g.errChan <- err
}
