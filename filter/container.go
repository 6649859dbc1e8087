package filter

// Container is the uniform interface the pipeline drives regardless of
// which concrete filter variant backs it. All operations are infallible
// on valid input — including the empty byte slice, which is a valid
// value and hashes like any other.
type Container interface {
	// Check reports whether value has probably been seen before.
	Check(value []byte) bool
	// Set records value as seen, unconditionally incrementing the
	// write counter (see XxhFilter.Set for how this differs from
	// CheckAndSet's counting).
	Set(value []byte)
	// CheckAndSet reports whether value had probably been seen before
	// and, if not, records it as seen in the same call. XxhFilter does
	// not record the value when every probed slot is taken (see
	// XxhFilter.CheckAndSet).
	CheckAndSet(value []byte) bool
	// IsFull reports whether the container has reached its configured
	// write capacity.
	IsFull() bool
	// Usage returns the approximate bit-level fill percentage.
	Usage() float64
	// WriteLevel returns 100*writes_observed/writes_max.
	WriteLevel() float64
	// Metadata returns the container's construction metadata.
	Metadata() *Metadata
}
