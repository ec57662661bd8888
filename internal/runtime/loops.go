package runtime

import (
	"sync"

	"github.com/aretw0/weft/pkg/domain"
)

// loopTracker hands out process-wide loop ids and remembers which are broken.
type loopTracker struct {
	mu     sync.Mutex
	next   domain.LoopID
	active map[domain.LoopID]bool
}

var loops = &loopTracker{active: make(map[domain.LoopID]bool)}

func (t *loopTracker) begin() domain.LoopID {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		t.next++
		if t.next <= 0 {
			t.next = 1
		}
		if _, taken := t.active[t.next]; !taken {
			t.active[t.next] = false
			return t.next
		}
	}
}

func (t *loopTracker) end(id domain.LoopID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[id]; !ok {
		return false
	}
	delete(t.active, id)
	return true
}

func (t *loopTracker) breakLoop(id domain.LoopID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[id]; ok {
		t.active[id] = true
	}
}

func (t *loopTracker) broken(id domain.LoopID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[id]
}

// ActiveLoops returns the number of loops begun and not yet ended in the process.
func ActiveLoops() int {
	loops.mu.Lock()
	defer loops.mu.Unlock()
	return len(loops.active)
}
