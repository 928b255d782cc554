// SPDX-License-Identifier: EPL-2.0

package engine

import "sync"

// resource is anything holding a native handle that must be released with
// the device.
type resource interface {
	release()
}

// handle is a stable index into the arena. Slots are reused after release.
type handle int

const noHandle handle = -1

// arena tracks every live resource of a device in a dense slot array.
type arena struct {
	mu    sync.Mutex
	slots []resource
	free  []handle
	live  int
}

func (a *arena) add(r resource) handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.live++
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[h] = r
		return h
	}
	a.slots = append(a.slots, r)
	return handle(len(a.slots) - 1)
}

// remove frees h if it still holds r.
func (a *arena) remove(h handle, r resource) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if h < 0 || int(h) >= len(a.slots) || a.slots[h] != r {
		return
	}
	a.slots[h] = nil
	a.free = append(a.free, h)
	a.live--
}

func (a *arena) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.live
}

// drain empties the arena and releases what it held, newest first so
// voices go before the buses they feed.
func (a *arena) drain() {
	a.mu.Lock()
	slots := a.slots
	a.slots, a.free, a.live = nil, nil, 0
	a.mu.Unlock()

	for i := len(slots) - 1; i >= 0; i-- {
		if slots[i] != nil {
			slots[i].release()
		}
	}
}
