package watcher

import (
	"sync"
	"time"
)

// Op is what happened to a content file
type Op string

const (
	OpChanged Op = "changed"
	OpRemoved Op = "removed"
)

// Change is one debounced change of a content file
type Change struct {
	// Path is relative to the content root, slash separated
	Path string    `json:"path"`
	Op   Op        `json:"op"`
	Kind Kind      `json:"kind"`
	Time time.Time `json:"time"`
}

// Debouncer coalesces bursts of events on the same path into one Change.
// The op is decided when the timer fires, from whether the file still
// exists, so a remove followed by a rename into place reads as a change.
type Debouncer struct {
	delay  time.Duration
	exists func(path string) bool

	mu       sync.Mutex
	pending  map[string]*time.Timer
	stopped  bool
	inflight sync.WaitGroup

	output chan Change
	stopCh chan struct{}
}

// NewDebouncer creates a debouncer. exists reports whether a path is still
// present when its change is emitted.
func NewDebouncer(delay time.Duration, exists func(path string) bool) *Debouncer {
	return &Debouncer{
		delay:   delay,
		exists:  exists,
		pending: make(map[string]*time.Timer),
		output:  make(chan Change, 100),
		stopCh:  make(chan struct{}),
	}
}

// Changes returns the channel of debounced changes. It is closed by Stop.
func (d *Debouncer) Changes() <-chan Change {
	return d.output
}

// Add records an event on path and restarts its quiet period
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if t, ok := d.pending[path]; ok {
		t.Reset(d.delay)
		return
	}
	d.pending[path] = time.AfterFunc(d.delay, func() { d.emit(path) })
}

func (d *Debouncer) emit(path string) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if _, ok := d.pending[path]; !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	op := OpRemoved
	if d.exists(path) {
		op = OpChanged
	}
	c := Change{Path: path, Op: op, Kind: KindOf(path), Time: time.Now()}

	select {
	case d.output <- c:
	case <-d.stopCh:
	}
}

// Flush emits every pending change now
func (d *Debouncer) Flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for path, t := range d.pending {
		t.Stop()
		paths = append(paths, path)
	}
	d.mu.Unlock()

	for _, path := range paths {
		d.emit(path)
	}
}

// Stop drops pending changes and closes the output channel
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, t := range d.pending {
		t.Stop()
	}
	d.pending = make(map[string]*time.Timer)
	d.mu.Unlock()

	close(d.stopCh)
	d.inflight.Wait()
	close(d.output)
}

// PendingCount returns the number of paths waiting for their quiet period
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
