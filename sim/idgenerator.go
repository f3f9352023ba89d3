package sim

import (
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

var (
	idGenMu    sync.Mutex
	idGenInUse bool
	idGen      IDGenerator
)

// An IDGenerator produces unique IDs for events, messages, and tasks.
type IDGenerator interface {
	Generate() string
}

// UseSequentialIDGenerator switches to numeric IDs counted up from 1. The
// generator type cannot change once an ID has been handed out.
func UseSequentialIDGenerator() {
	idGenMu.Lock()
	defer idGenMu.Unlock()

	if idGenInUse {
		log.Panic("cannot change id generator type after using it")
	}

	idGen = &sequentialIDGenerator{}
	idGenInUse = true
}

// UseParallelIDGenerator switches to xid-based IDs, which are safe to
// generate from multiple goroutines but not deterministic across runs.
func UseParallelIDGenerator() {
	idGenMu.Lock()
	defer idGenMu.Unlock()

	if idGenInUse {
		log.Panic("cannot change id generator type after using it")
	}

	idGen = parallelIDGenerator{}
	idGenInUse = true
}

// GetIDGenerator returns the process-wide ID generator, creating the
// sequential one on first use.
func GetIDGenerator() IDGenerator {
	if idGenInUse {
		return idGen
	}

	idGenMu.Lock()
	defer idGenMu.Unlock()

	if !idGenInUse {
		idGen = &sequentialIDGenerator{}
		idGenInUse = true
	}

	return idGen
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	return strconv.FormatUint(atomic.AddUint64(&g.nextID, 1), 10)
}

type parallelIDGenerator struct{}

func (parallelIDGenerator) Generate() string {
	return xid.New().String()
}
