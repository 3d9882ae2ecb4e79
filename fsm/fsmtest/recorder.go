// Package fsmtest provides helpers for testing state machines: an observer
// which records every step of every transition, matchers over the recording,
// and a scenario runner.
package fsmtest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/fsm"
)

// Kind identifies what a Record describes.
type Kind string

const (
	KindStarted   Kind = "started"
	KindGuard     Kind = "guard"
	KindAction    Kind = "action"
	KindCommitted Kind = "committed"
	KindFailed    Kind = "failed"
)

// Record is one observed step.
type Record struct {
	Kind      Kind
	Timestamp time.Time
	Machine   string
	MachineID string
	From      string
	To        string
	Name      string
	Phase     fsm.Phase
	Allowed   bool
	Err       error
}

// Recorder is an fsm.Observer which keeps every callback it receives.
type Recorder struct {
	mut     sync.Mutex
	records []Record
}

var _ fsm.Observer = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(info fsm.TransitionInfo, rec Record) {
	rec.Timestamp = time.Now()
	rec.Machine = info.Machine
	rec.MachineID = info.MachineID
	rec.From = info.From
	rec.To = info.To

	r.mut.Lock()
	defer r.mut.Unlock()

	r.records = append(r.records, rec)
}

func (r *Recorder) TransitionStarted(_ context.Context, info fsm.TransitionInfo) {
	r.add(info, Record{Kind: KindStarted})
}

func (r *Recorder) GuardEvaluated(_ context.Context, info fsm.TransitionInfo, guard string, allowed bool, err error) {
	r.add(info, Record{Kind: KindGuard, Name: guard, Allowed: allowed, Err: err})
}

func (r *Recorder) ActionInvoked(_ context.Context, info fsm.TransitionInfo, action string, phase fsm.Phase, err error) {
	r.add(info, Record{Kind: KindAction, Name: action, Phase: phase, Err: err})
}

func (r *Recorder) TransitionCommitted(_ context.Context, info fsm.TransitionInfo) {
	r.add(info, Record{Kind: KindCommitted})
}

func (r *Recorder) TransitionFailed(_ context.Context, info fsm.TransitionInfo, err error) {
	r.add(info, Record{Kind: KindFailed, Err: err})
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mut.Lock()
	defer r.mut.Unlock()

	return slices.Clone(r.records)
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mut.Lock()
	defer r.mut.Unlock()

	r.records = nil
}

// Committed returns the committed transitions in order.
func (r *Recorder) Committed() []fsm.Edge[string] {
	var out []fsm.Edge[string]

	for _, rec := range r.Records() {
		if rec.Kind == KindCommitted {
			out = append(out, fsm.Edge[string]{From: rec.From, To: rec.To})
		}
	}

	return out
}

// Path returns the states visited through committed transitions, starting
// with the origin of the first one.
func (r *Recorder) Path() []string {
	committed := r.Committed()
	if len(committed) == 0 {
		return nil
	}

	path := []string{committed[0].From}
	for _, edge := range committed {
		path = append(path, edge.To)
	}

	return path
}

// Actions returns the names of the actions invoked, in order.
func (r *Recorder) Actions() []string {
	var out []string

	for _, rec := range r.Records() {
		if rec.Kind == KindAction {
			out = append(out, rec.Name)
		}
	}

	return out
}

// Failures returns the errors of failed transitions, in order.
func (r *Recorder) Failures() []error {
	var out []error

	for _, rec := range r.Records() {
		if rec.Kind == KindFailed {
			out = append(out, rec.Err)
		}
	}

	return out
}
