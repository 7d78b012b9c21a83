package tracker

import "sync"

// IDGenerator is a struct to hold a counter for generating the next
// incremental track ID number
type IDGenerator struct {
	id int
	sync.Mutex
}

// NewIDGenerator returns a generator whose first id is 1
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next incremental number
func (id *IDGenerator) GetNext() int {
	id.Lock()
	defer id.Unlock()
	id.id++
	return id.id
}

// Last returns the most recently issued id, or 0 if none have been issued
func (id *IDGenerator) Last() int {
	id.Lock()
	defer id.Unlock()
	return id.id
}
