package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики заполнения демо-данных
	SeededItems int64
	FailedItems int64
	LastSeedRun time.Time

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

// NewMetrics создает пустой набор метрик
func NewMetrics() *Metrics {
	return &Metrics{
		ErrorTypes: make(map[string]int64),
	}
}

// RecordRequest записывает метрики запроса; status >= 500 считается ошибкой
func (m *Metrics) RecordRequest(duration time.Duration, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if status >= 500 {
		m.FailedRequests++
		m.recordError("http_5xx")
	}
}

// RecordSeedItem записывает результат создания одной демо-записи
func (m *Metrics) RecordSeedItem(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastSeedRun = time.Now()
	if err != nil {
		m.FailedItems++
		m.recordError(err.Error())
		return
	}
	m.SeededItems++
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	m.recordError(errorType)
}

// recordError вызывается под m.mu
func (m *Metrics) recordError(errorType string) {
	m.ErrorCount++
	m.LastErrorTime = time.Now()
	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":  m.TotalRequests,
		"failed_requests": m.FailedRequests,
		"average_latency": m.AverageLatency.String(),
		"seeded_items":    m.SeededItems,
		"failed_items":    m.FailedItems,
		"error_count":     m.ErrorCount,
		"last_error_time": m.LastErrorTime,
		"error_types":     errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.SeededItems = 0
	m.FailedItems = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
