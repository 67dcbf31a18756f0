package cloudsync

import (
	"sync"

	"github.com/cocoaheadsnl/cloudsync/pkg/pipeline"
)

// Hook function types for run events
type (
	// StateHook is called on every pipeline state transition
	StateHook func(t pipeline.Transition)

	// StageHook is called after a stage completes its writes
	StageHook func(s pipeline.StageResult)
)

// hooks manages run callbacks
type hooks struct {
	mu              sync.RWMutex
	onStateChange   []StateHook
	onStageComplete []StageHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnStateChange registers a callback for state transitions
func (h *hooks) OnStateChange(fn StateHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStateChange = append(h.onStateChange, fn)
}

// OnStageComplete registers a callback for completed stages
func (h *hooks) OnStageComplete(fn StageHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStageComplete = append(h.onStageComplete, fn)
}

// triggerState runs the state hooks
func (h *hooks) triggerState(t pipeline.Transition) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onStateChange {
		hook(t)
	}
}

// triggerStages runs the stage hooks for every completed stage
func (h *hooks) triggerStages(res *pipeline.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range res.Stages {
		for _, hook := range h.onStageComplete {
			hook(s)
		}
	}
}
