package goroutine

import (
	"sync"
	"sync/atomic"

	"github.com/gmssh-project/gmssh/pkg/logger"
)

var (
	goroutineCounter uint64
	goroutineMap     sync.Map
)

// RegisterGoroutine records a named background task and returns its ID.
// The data pump, keepalive beacon, and transfer jobs register themselves so
// teardown tests can assert nothing is left running.
func RegisterGoroutine(name string) uint64 {
	id := atomic.AddUint64(&goroutineCounter, 1)
	goroutineMap.Store(id, name)
	return id
}

// DeregisterGoroutine removes a task from the registry by ID.
func DeregisterGoroutine(id uint64) {
	goroutineMap.Delete(id)
}

// GetActiveGoroutines returns the IDs and names of registered tasks.
func GetActiveGoroutines() map[uint64]string {
	l := logger.Get()
	result := make(map[uint64]string)
	goroutineMap.Range(func(key, value interface{}) bool {
		id, ok := key.(uint64)
		if !ok {
			l.Warnf("invalid goroutine ID type: %T", key)
			return true
		}
		name, ok := value.(string)
		if !ok {
			l.Warnf("invalid goroutine name type: %T", value)
			return true
		}
		result[id] = name
		return true
	})
	return result
}

// ActiveCount returns the number of registered tasks.
func ActiveCount() int {
	count := 0
	goroutineMap.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return count
}
