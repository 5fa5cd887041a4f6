package db

import (
	"encoding/json"
	"log"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
)

// Handler receives the complete new collection snapshot after each write.
// Snapshots are full arrays, never deltas.
type Handler func(snapshot json.RawMessage)

// Bus is the per-collection change notification fan-out. Callbacks for a
// collection run in registration order on every Set for that collection;
// callbacks for other collections are never invoked. Deliveries to a
// single subscriber are serialized, so the last snapshot it sees is
// always the newest one.
type Bus struct {
	mu          sync.Mutex
	subscribers map[string]map[uint64]*subscriber
	nextID      uint64
}

// subscriber serializes deliveries to one callback. Holding mu across the
// snapshot read and the callback keeps the initial delivery from racing a
// concurrent publish and arriving stale.
type subscriber struct {
	mu sync.Mutex
	fn Handler
}

func newBus() *Bus {
	return &Bus{subscribers: make(map[string]map[uint64]*subscriber)}
}

// subscribe registers fn for name and delivers its first snapshot on a
// separate goroutine, mirroring the deferred first delivery observers
// rely on. initial is called at delivery time so the first snapshot is
// current even if writes land between registration and delivery. The
// returned function deregisters fn; calling it more than once is harmless.
func (b *Bus) subscribe(name string, initial func() json.RawMessage, fn Handler) func() {
	b.mu.Lock()
	if b.subscribers[name] == nil {
		b.subscribers[name] = make(map[uint64]*subscriber)
	}
	id := b.nextID
	b.nextID++
	sub := &subscriber{fn: fn}
	b.subscribers[name][id] = sub
	b.mu.Unlock()

	go func() {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		invoke(name, fn, initial())
	}()

	return func() {
		b.mu.Lock()
		delete(b.subscribers[name], id)
		b.mu.Unlock()
	}
}

// publish delivers snapshot to every subscriber of name. Failures are
// isolated per callback: a panic in one is recovered and logged, and
// delivery continues to the rest.
func (b *Bus) publish(name string, snapshot json.RawMessage) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subscribers[name]))
	for _, sub := range b.subscribers[name] {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		invoke(name, sub.fn, snapshot)
		sub.mu.Unlock()
	}
}

// invoke calls fn with snapshot, containing any panic to this one callback.
func invoke(name string, fn Handler, snapshot json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Subscriber callback for collection '%s' panicked: %v", name, r)
		}
	}()
	fn(snapshot)
}

// SortSnapshot orders a serialized collection snapshot by a top-level
// field. Numbers compare numerically, everything else as strings; records
// missing the field sort first. Used for the sorted initial delivery
// option on subscribe.
func SortSnapshot(snapshot json.RawMessage, field string, descending bool) json.RawMessage {
	parsed := gjson.ParseBytes(snapshot)
	if !parsed.IsArray() || field == "" {
		return snapshot
	}

	elements := parsed.Array()
	sort.SliceStable(elements, func(i, j int) bool {
		a, b := elements[i], elements[j]
		if descending {
			a, b = b, a
		}
		vi := a.Get(field)
		vj := b.Get(field)
		if vi.Type == gjson.Number && vj.Type == gjson.Number {
			return vi.Float() < vj.Float()
		}
		return vi.String() < vj.String()
	})

	out := make([]json.RawMessage, len(elements))
	for i, el := range elements {
		out[i] = json.RawMessage(el.Raw)
	}
	sorted, err := json.Marshal(out)
	if err != nil {
		return snapshot
	}
	return sorted
}
