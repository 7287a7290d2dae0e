package daemon

import (
	"sync"
)

type Metrics struct {
	LinesRead        int
	LinesAccepted    int
	BatchesSealed    int
	BatchesDelivered int
	BatchesDropped   int
	DeliveryAttempts int
	Rotations        int
	Reopens          int
	mu               sync.RWMutex
}

func (m *Metrics) IncLinesRead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LinesRead++
}

func (m *Metrics) IncLinesAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LinesAccepted++
}

func (m *Metrics) IncBatchesSealed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesSealed++
}

func (m *Metrics) IncBatchesDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesDelivered++
}

func (m *Metrics) IncBatchesDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BatchesDropped++
}

func (m *Metrics) AddDeliveryAttempts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeliveryAttempts += n
}

func (m *Metrics) IncRotations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rotations++
}

func (m *Metrics) IncReopens() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reopens++
}

func (m *Metrics) GetMetricsStamp() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		LinesRead:        m.LinesRead,
		LinesAccepted:    m.LinesAccepted,
		BatchesSealed:    m.BatchesSealed,
		BatchesDelivered: m.BatchesDelivered,
		BatchesDropped:   m.BatchesDropped,
		DeliveryAttempts: m.DeliveryAttempts,
		Rotations:        m.Rotations,
		Reopens:          m.Reopens,
	}
}

// GetDropRate is the share of sealed batches that were dropped.
func (m *Metrics) GetDropRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.BatchesSealed == 0 {
		return 0
	}
	return float64(m.BatchesDropped) / float64(m.BatchesSealed)
}
