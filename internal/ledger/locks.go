package ledger

import "sync"

// keyedMutex serializes mutating operations per job. Operations on different
// jobs proceed in parallel; two operations on the same job never interleave.
// Entries live for the process lifetime, which is bounded by the number of
// jobs this instance has touched.
type keyedMutex struct {
	locks sync.Map // uint -> *sync.Mutex
}

// lock acquires the mutex for a job ID and returns its unlock function
func (k *keyedMutex) lock(jobID uint) func() {
	v, _ := k.locks.LoadOrStore(jobID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
