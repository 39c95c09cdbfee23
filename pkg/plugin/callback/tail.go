// Package callback holds the built-in Callback handlers (spec section 6),
// registered into pkg/plugin's static registry at init time.
package callback

import (
	"sync"

	"github.com/obscura-sec/warden/pkg/plugin"
	"github.com/obscura-sec/warden/pkg/types"
)

func init() {
	plugin.Callbacks.Register(NewTail(defaultTailCapacity))
}

// defaultTailCapacity mirrors modules/callback/tail.py's default ring size.
const defaultTailCapacity = 50

// Tail keeps the most recent N match records in memory, adapted from
// modules/callback/tail.py's deque(maxlen=N) ring buffer. The held records
// are read back through Recent; the CLI does not print them.
type Tail struct {
	mu       sync.Mutex
	capacity int
	records  []*types.MatchRecord
}

// NewTail returns a Tail callback bounded to capacity records.
func NewTail(capacity int) *Tail {
	if capacity <= 0 {
		capacity = defaultTailCapacity
	}
	return &Tail{capacity: capacity}
}

func (t *Tail) Name() string            { return "tail" }
func (t *Tail) SupportedOS() []string   { return nil } // nil => all platforms

// Run appends record, evicting the oldest entry once capacity is reached.
func (t *Tail) Run(record *types.MatchRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = append(t.records, record)
	if len(t.records) > t.capacity {
		t.records = t.records[len(t.records)-t.capacity:]
	}
}

// Recent returns a snapshot of the records currently held, oldest first.
func (t *Tail) Recent() []*types.MatchRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*types.MatchRecord, len(t.records))
	copy(out, t.records)
	return out
}
