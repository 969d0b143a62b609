package daemon

import "sync"

// probeErrors remembers the last probe failure so a probe that keeps
// failing is reported once rather than on every sample.
type probeErrors struct {
	mu   sync.Mutex
	last string
}

// changed records err and reports whether it differs from the previous one.
func (p *probeErrors) changed(err error) bool {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if msg == p.last {
		return false
	}
	p.last = msg
	return true
}
