package game

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024
	BatchFlushSize       = 64
	BatchFlushInterval   = 100 * time.Millisecond
	PlayerLimiterCleanup = 5 * time.Minute
)

// EventLogConfig bounds journal throughput.
type EventLogConfig struct {
	MaxEventsPerSec    int // across all rooms
	MaxEventsPerPlayer int // per player per second
}

// DefaultEventLogConfig suits a single process hosting a few hundred rooms.
func DefaultEventLogConfig() EventLogConfig {
	return EventLogConfig{
		MaxEventsPerSec:    2000,
		MaxEventsPerPlayer: 20,
	}
}

// EventLog is a bounded, rate-limited JSONL journal shared by all rooms.
// Producers never block: when the ring is full the oldest pending event is
// dropped.
type EventLog struct {
	cfg EventLogConfig

	mu        sync.Mutex
	buffer    [EventBufferSize]Event
	writeHead uint64
	readHead  uint64

	globalLimiter  *rate.Limiter
	playerLimiters sync.Map // map[string]*playerLimiterEntry

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	fileMu sync.Mutex
	file   *os.File
	out    *bufio.Writer

	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
}

type playerLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// NewEventLog creates a stopped journal.
func NewEventLog(cfg EventLogConfig) *EventLog {
	if cfg.MaxEventsPerSec <= 0 {
		cfg.MaxEventsPerSec = DefaultEventLogConfig().MaxEventsPerSec
	}
	if cfg.MaxEventsPerPlayer <= 0 {
		cfg.MaxEventsPerPlayer = DefaultEventLogConfig().MaxEventsPerPlayer
	}
	return &EventLog{
		cfg:           cfg,
		globalLimiter: rate.NewLimiter(rate.Limit(cfg.MaxEventsPerSec), burst(cfg.MaxEventsPerSec)),
		stopChan:      make(chan struct{}),
	}
}

func burst(perSec int) int {
	if b := perSec / 10; b > 0 {
		return b
	}
	return 1
}

// Start opens filePath for append and launches the writer. An empty path
// keeps events in memory only, which is what tests use.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		el.file = file
		el.out = bufio.NewWriter(file)
	}

	el.running.Store(true)
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes pending events and closes the file.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()

		el.fileMu.Lock()
		if el.out != nil {
			el.out.Flush()
		}
		if el.file != nil {
			el.file.Close()
		}
		el.fileMu.Unlock()
	})
}

// Emit queues an event. It returns false when the event was rate limited or
// the journal is not running.
func (el *EventLog) Emit(event Event) bool {
	if el == nil || !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}
	if event.PlayerID != "" && !el.playerLimiter(event.PlayerID).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	el.mu.Lock()
	el.writeHead++
	if el.writeHead-el.readHead > EventBufferSize {
		el.readHead++
		el.droppedCount.Add(1)
	}
	event.Sequence = el.writeHead
	el.buffer[el.writeHead%EventBufferSize] = event
	el.mu.Unlock()

	el.totalCount.Add(1)
	return true
}

// EmitSimple builds and queues an event.
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, roomID, playerID string, payload interface{}) bool {
	if el == nil {
		return false
	}
	return el.Emit(NewEvent(eventType, tickNum, roomID, playerID, payload))
}

func (el *EventLog) playerLimiter(playerID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.playerLimiters.Load(playerID); ok {
		e := v.(*playerLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &playerLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(el.cfg.MaxEventsPerPlayer), burst(el.cfg.MaxEventsPerPlayer)+5),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.playerLimiters.LoadOrStore(playerID, entry)
	return actual.(*playerLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(PlayerLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-PlayerLimiterCleanup).UnixNano()
			el.playerLimiters.Range(func(key, value interface{}) bool {
				if value.(*playerLimiterEntry).lastUsed.Load() < cutoff {
					el.playerLimiters.Delete(key)
				}
				return true
			})
		}
	}
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.readHead < el.writeHead && len(batch) < BatchFlushSize {
		el.readHead++
		batch = append(batch, el.buffer[el.readHead%EventBufferSize])
	}
	return batch
}

func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.out == nil {
		return
	}
	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			continue
		}
	}
	el.out.Flush()
}

// Pending returns how many events wait for the writer.
func (el *EventLog) Pending() uint64 {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.writeHead - el.readHead
}

// GetStats reports journal counters for the stats endpoint.
func (el *EventLog) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"total":   el.totalCount.Load(),
		"dropped": el.droppedCount.Load(),
		"pending": el.Pending(),
		"running": el.running.Load(),
	}
}

func (el *EventLog) GetDroppedCount() uint64 {
	return el.droppedCount.Load()
}

func (el *EventLog) GetTotalCount() uint64 {
	return el.totalCount.Load()
}
