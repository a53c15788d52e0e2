// Package record tracks which resources a sequence of recorded commands
// references. Every reference a recorder takes is retained in the registry
// under the recorder's epoch; the references travel with the finished
// sequence and are released when the device completes the epoch, or
// immediately when the recording is abandoned.
package record

import (
	"github.com/arcana-engine/sierra/resource"
	"github.com/arcana-engine/sierra/track"
)

// Recorder collects resource references for one epoch on one queue. The epoch
// is fixed when recording begins; submitting the same commands under another
// epoch requires recording them again. A Recorder is not safe for concurrent
// use.
type Recorder struct {
	registry *resource.Registry
	epoch    resource.Epoch
	queue    track.QueueID

	retained []resource.Handle
	closed   bool
}

// Begin starts recording under the given epoch and queue.
func Begin(registry *resource.Registry, epoch resource.Epoch, queue track.QueueID) *Recorder {
	return &Recorder{
		registry: registry,
		epoch:    epoch,
		queue:    queue,
	}
}

// Epoch returns the epoch the recording is bound to.
func (r *Recorder) Epoch() resource.Epoch { return r.epoch }

// Queue returns the queue the recording targets.
func (r *Recorder) Queue() track.QueueID { return r.queue }

// MarkUsed records that the command being recorded references the resource.
// The resource's last-used epoch is raised to the recorder's epoch and a
// strong reference is retained until the epoch completes.
func (r *Recorder) MarkUsed(h resource.Handle) {
	if r.closed {
		panic("attempted to record a resource use on a finished or abandoned recorder")
	}

	r.registry.MarkUsed(h, r.epoch)
	r.registry.Retain(h)
	r.retained = append(r.retained, h)
}

// Finish closes the recording and returns the sequence carrying the retained
// references. The recorder cannot be used afterwards.
func (r *Recorder) Finish() *Sequence {
	if r.closed {
		panic("attempted to finish a recorder twice")
	}
	r.closed = true

	seq := &Sequence{
		epoch: r.epoch,
		queue: r.queue,
		refs:  r.retained,
	}
	r.retained = nil
	return seq
}

// Abandon discards the recording, synchronously releasing every reference it
// retained. When Abandon returns the sequence's resources are released; one
// that reached a zero reference count is already on the reclamation queue.
func (r *Recorder) Abandon() {
	if r.closed {
		panic("attempted to abandon a finished or abandoned recorder")
	}
	r.closed = true

	for _, h := range r.retained {
		r.registry.Release(h)
	}
	r.retained = nil
}

// Sequence is a finished recording, ready for submission. It owns the
// references retained during recording until the tracker releases them on
// epoch completion.
type Sequence struct {
	epoch resource.Epoch
	queue track.QueueID
	refs  []resource.Handle
}

// Epoch returns the epoch the sequence was recorded under.
func (s *Sequence) Epoch() resource.Epoch { return s.epoch }

// Queue returns the queue the sequence targets.
func (s *Sequence) Queue() track.QueueID { return s.queue }

// TakeRefs hands the retained references over to the submitting layer. The
// sequence no longer owns them afterwards.
func (s *Sequence) TakeRefs() []resource.Handle {
	refs := s.refs
	s.refs = nil
	return refs
}
