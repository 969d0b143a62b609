package signal

// Debouncer reports a change of a boolean signal only after it has been seen
// Threshold times in a row. The initial stable value is false.
type Debouncer struct {
	threshold int
	stable    bool
	streak    int
}

// NewDebouncer returns a Debouncer; thresholds below 1 are treated as 1.
func NewDebouncer(threshold int) *Debouncer {
	if threshold < 1 {
		threshold = 1
	}
	return &Debouncer{threshold: threshold}
}

// Observe feeds one sample and reports whether the stable value flipped.
func (d *Debouncer) Observe(v bool) bool {
	if v == d.stable {
		d.streak = 0
		return false
	}
	d.streak++
	if d.streak < d.threshold {
		return false
	}
	d.stable = v
	d.streak = 0
	return true
}

// Stable returns the current debounced value.
func (d *Debouncer) Stable() bool { return d.stable }
