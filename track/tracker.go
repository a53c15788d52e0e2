// Package track maps submitted epochs to device completion tokens and reports
// completed epochs, per queue and in order. Queues complete their submissions
// in submission order, so the tracker walks each queue's in-flight list from
// the front and stops at the first epoch the device has not confirmed; a
// completion report that arrives for a later epoch first is buffered until
// its predecessors confirm.
package track

import (
	"context"

	"github.com/arcana-engine/sierra/driver"
	"github.com/arcana-engine/sierra/internal/utils"
	"github.com/arcana-engine/sierra/resource"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
)

// QueueID identifies one device submission queue.
type QueueID uint32

// CompletionSink receives completed epochs in ascending order. The device
// context implements it to forward completions to the registry and to advance
// the allocators' reclamation passes.
type CompletionSink interface {
	OnEpochComplete(epoch resource.Epoch)
}

// inFlightEpoch is one submitted epoch awaiting device confirmation.
type inFlightEpoch struct {
	epoch resource.Epoch
	token driver.CompletionToken
	refs  []resource.Handle
}

// queueState carries one queue's submissions behind its own mutex, so polling
// or submitting on one queue never blocks another.
type queueState struct {
	mutex utils.OptionalMutex

	lastOpened     resource.Epoch
	lastSubmitted  resource.Epoch
	completedEpoch resource.Epoch
	inFlight       []inFlightEpoch
}

// maxInFlightBeforeWarning is the in-flight epoch count on one queue past
// which the tracker logs a warning, since an ever-growing list means the
// consumer is not polling.
const maxInFlightBeforeWarning = 64

// Tracker assigns epochs from a strictly increasing counter and maps each
// submitted epoch to the completion token that confirms it.
type Tracker struct {
	useMutex bool
	logger   *slog.Logger
	device   driver.Device
	registry *resource.Registry
	sink     CompletionSink

	epochMutex utils.OptionalMutex
	nextEpoch  resource.Epoch

	queuesMutex utils.OptionalRWMutex
	queues      *swiss.Map[QueueID, *queueState]
	queueList   []*queueState
}

// NewTracker creates a tracker polling the given device. Completed epochs
// release the references their sequences retained in the registry, then
// forward to the sink.
func NewTracker(logger *slog.Logger, device driver.Device, registry *resource.Registry, sink CompletionSink, useMutex bool) *Tracker {
	return &Tracker{
		useMutex: useMutex,
		logger:   logger,
		device:   device,
		registry: registry,
		sink:     sink,
		epochMutex: utils.OptionalMutex{
			UseMutex: useMutex,
		},
		queuesMutex: utils.OptionalRWMutex{
			UseMutex: useMutex,
		},
		queues: swiss.NewMap[QueueID, *queueState](42),
	}
}

// BeginEpoch opens a new epoch for recording work destined for the queue.
// Epoch identifiers are globally unique and strictly increasing; an epoch is
// never reused, even after the device completes it. Submitting an epoch to a
// queue that never opened one at least as late is rejected.
func (t *Tracker) BeginEpoch(queue QueueID) resource.Epoch {
	state := t.stateForQueue(queue)

	t.epochMutex.Lock()
	t.nextEpoch++
	epoch := t.nextEpoch
	t.epochMutex.Unlock()

	state.mutex.Lock()
	if epoch > state.lastOpened {
		state.lastOpened = epoch
	}
	state.mutex.Unlock()

	return epoch
}

// Submit closes an epoch and records the token that will confirm its
// completion, together with the references its sequence retained. Epochs must
// reach each queue in ascending order, matching the order the device will
// complete them in.
func (t *Tracker) Submit(epoch resource.Epoch, queue QueueID, token driver.CompletionToken, refs []resource.Handle) error {
	if token == nil {
		return errors.New("attempted to submit an epoch with a nil completion token")
	}

	state := t.stateForQueue(queue)

	state.mutex.Lock()
	defer state.mutex.Unlock()

	if epoch > state.lastOpened {
		return errors.Errorf("epoch %d was never opened for this queue (last opened %d)", epoch, state.lastOpened)
	}
	if epoch <= state.lastSubmitted {
		return errors.Errorf("epoch %d does not ascend past the queue's last submission %d", epoch, state.lastSubmitted)
	}

	state.lastSubmitted = epoch
	state.inFlight = append(state.inFlight, inFlightEpoch{
		epoch: epoch,
		token: token,
		refs:  refs,
	})

	if len(state.inFlight) > maxInFlightBeforeWarning {
		t.logger.LogAttrs(context.Background(), slog.LevelWarn, "too many in-flight epochs accumulated on one queue, poll more often",
			slog.Int("queue", int(queue)),
			slog.Int("inFlight", len(state.inFlight)))
	}

	return nil
}

func (t *Tracker) stateForQueue(queue QueueID) *queueState {
	t.queuesMutex.RLock()
	state, ok := t.queues.Get(queue)
	t.queuesMutex.RUnlock()
	if ok {
		return state
	}

	t.queuesMutex.Lock()
	defer t.queuesMutex.Unlock()

	state, ok = t.queues.Get(queue)
	if ok {
		return state
	}

	state = &queueState{
		mutex: utils.OptionalMutex{UseMutex: t.useMutex},
	}
	t.queues.Put(queue, state)
	t.queueList = append(t.queueList, state)
	return state
}

// Poll queries the device for completed epochs on every queue and forwards
// newly completed ones to the sink in ascending epoch order. Each queue's
// in-flight list is walked from the front; the walk stops at the first
// unconfirmed token, so a later epoch reported done out of order waits for
// its predecessors. A queue's completed epoch never moves backwards,
// whatever the device reports. Polling again with no new completions does
// nothing. When a query fails, epochs already confirmed are still delivered
// before the error is returned.
func (t *Tracker) Poll() error {
	t.queuesMutex.RLock()
	queues := t.queueList
	t.queuesMutex.RUnlock()

	var completed []inFlightEpoch
	var pollErr error

	for _, state := range queues {
		state.mutex.Lock()

		confirmed := 0
		for _, flight := range state.inFlight {
			done, err := t.device.QueryCompletion(flight.token)
			if err != nil {
				pollErr = err
				break
			}
			if !done {
				break
			}
			confirmed++
		}

		for i := 0; i < confirmed; i++ {
			flight := state.inFlight[i]
			if flight.epoch > state.completedEpoch {
				state.completedEpoch = flight.epoch
			}
			completed = append(completed, flight)
		}
		state.inFlight = append(state.inFlight[:0], state.inFlight[confirmed:]...)

		state.mutex.Unlock()

		if pollErr != nil {
			break
		}
	}

	// Epochs confirmed before a query failure still complete; the failure only
	// stops further querying.
	t.deliver(completed)
	return pollErr
}

// Drain treats every in-flight epoch as complete. The caller must have issued
// a device-idle barrier first; this is the shutdown path.
func (t *Tracker) Drain() {
	t.queuesMutex.RLock()
	queues := t.queueList
	t.queuesMutex.RUnlock()

	var completed []inFlightEpoch

	for _, state := range queues {
		state.mutex.Lock()
		for _, flight := range state.inFlight {
			if flight.epoch > state.completedEpoch {
				state.completedEpoch = flight.epoch
			}
			completed = append(completed, flight)
		}
		state.inFlight = nil
		state.mutex.Unlock()
	}

	t.deliver(completed)
}

// deliver releases the references of completed epochs and notifies the sink,
// ascending across queues.
func (t *Tracker) deliver(completed []inFlightEpoch) {
	if len(completed) == 0 {
		return
	}

	slices.SortFunc(completed, func(a, b inFlightEpoch) bool {
		return a.epoch < b.epoch
	})

	for _, flight := range completed {
		for _, ref := range flight.refs {
			t.registry.Release(ref)
		}
		t.sink.OnEpochComplete(flight.epoch)
	}
}

// CompletedEpoch returns the highest epoch the queue has confirmed complete.
func (t *Tracker) CompletedEpoch(queue QueueID) resource.Epoch {
	state := t.stateForQueue(queue)

	state.mutex.Lock()
	defer state.mutex.Unlock()

	return state.completedEpoch
}
