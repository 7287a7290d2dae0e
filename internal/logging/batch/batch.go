package batch

import (
	"github.com/google/uuid"

	"github.com/Chichichkin/logshipper/internal/logging"
)

// Assembler groups entries into batches bounded by entry count and total
// content bytes. It is not safe for concurrent use; the watch loop owns it.
type Assembler struct {
	maxEntries int
	maxBytes   int
	batch      []logging.LogEntry
	batchBytes int
}

func NewAssembler(maxEntries, maxBytes int) *Assembler {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if maxBytes < 1 {
		maxBytes = 1
	}
	return &Assembler{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
	}
}

// Add admits entry into the open batch. When the entry would push the open
// batch past either bound, the open batch is sealed and returned and the
// entry starts a new one. Otherwise Add returns nil.
func (a *Assembler) Add(entry logging.LogEntry) *logging.Batch {
	size := len(entry.Content)

	// an empty batch always takes the entry, even one larger than maxBytes
	if len(a.batch) == 0 {
		a.admit(entry, size)
		return nil
	}

	if len(a.batch)+1 > a.maxEntries || a.batchBytes+size > a.maxBytes {
		sealed := a.seal()
		a.admit(entry, size)
		return sealed
	}

	a.admit(entry, size)
	return nil
}

// Flush seals the open batch if it holds anything.
func (a *Assembler) Flush() *logging.Batch {
	if len(a.batch) == 0 {
		return nil
	}
	return a.seal()
}

func (a *Assembler) Pending() int {
	return len(a.batch)
}

func (a *Assembler) admit(entry logging.LogEntry, size int) {
	a.batch = append(a.batch, entry)
	a.batchBytes += size
}

func (a *Assembler) seal() *logging.Batch {
	sealed := &logging.Batch{
		ID:      uuid.NewString(),
		Entries: a.batch,
		Bytes:   a.batchBytes,
	}
	a.batch = make([]logging.LogEntry, 0, a.maxEntries)
	a.batchBytes = 0
	return sealed
}
