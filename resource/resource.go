// Package resource tracks the lifetime of device resources. Every buffer,
// image and descriptor set registers here on creation; the registry keeps its
// reference count and the last epoch that used it, and runs its destructor
// only after the device has confirmed completion of all work up to that epoch.
package resource

// Epoch identifies one span of recorded device work. Epochs are assigned by
// the submission tracker from a strictly increasing counter and are never
// reused.
type Epoch uint64

// Kind classifies a registered resource. The registry is sharded by kind so
// unrelated resource classes do not serialize each other.
type Kind uint32

const (
	KindBuffer Kind = iota
	KindImage
	KindDescriptorSet

	// kindCount is the number of registry shards
	kindCount = int(KindDescriptorSet) + 1
)

var kindNames = map[Kind]string{
	KindBuffer:        "KindBuffer",
	KindImage:         "KindImage",
	KindDescriptorSet: "KindDescriptorSet",
}

func (k Kind) String() string {
	str, ok := kindNames[k]
	if !ok {
		return "unknown Kind"
	}
	return str
}

// State is the lifecycle state of a registered resource. Transitions only move
// forward: Live to PendingFree to Freed.
type State uint32

const (
	// StateLive resources hold at least one strong reference.
	StateLive State = iota
	// StatePendingFree resources have no references left and wait on the
	// reclamation queue for their last-used epoch to complete.
	StatePendingFree
	// StateFreed resources have run their destructor. Terminal.
	StateFreed
)

var stateNames = map[State]string{
	StateLive:        "StateLive",
	StatePendingFree: "StatePendingFree",
	StateFreed:       "StateFreed",
}

func (s State) String() string {
	str, ok := stateNames[s]
	if !ok {
		return "unknown State"
	}
	return str
}
