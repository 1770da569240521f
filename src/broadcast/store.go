package broadcast

// Store holds the values accepted by a broadcast node.
type Store interface {
	// Add records v and reports whether it was accepted. A deduplicating
	// store refuses values it already holds.
	Add(v int) (bool, error)
	// Values returns the accepted values in the order they were accepted.
	Values() ([]int, error)
	Len() int
	Dedup() bool
	Close() error
}
