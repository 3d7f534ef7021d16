package status

import (
	"sync"

	"go.uber.org/zap"
)

// LogIndicator renders levels as log lines. It stands in for the GPIO
// indicator on machines without one.
type LogIndicator struct {
	mu     sync.Mutex
	logger *zap.Logger
	closed bool
}

// NewLogIndicator creates a LogIndicator.
func NewLogIndicator(logger *zap.Logger) *LogIndicator {
	return &LogIndicator{logger: logger}
}

// Set logs the level and its pattern.
func (i *LogIndicator) Set(l Level) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	p := PatternFor(l)
	i.logger.Info("indicator",
		zap.Stringer("level", l),
		zap.Bool("solid", p.Solid),
		zap.Duration("blink_on", p.On),
		zap.Duration("blink_off", p.Off),
	)
}

// Off logs the indicator going dark.
func (i *LogIndicator) Off() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.closed {
		i.logger.Info("indicator off")
	}
}

// Close stops further output.
func (i *LogIndicator) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	return nil
}

// Multi fans a level out to several indicators.
type Multi []Indicator

func (m Multi) Set(l Level) {
	for _, ind := range m {
		ind.Set(l)
	}
}

func (m Multi) Off() {
	for _, ind := range m {
		ind.Off()
	}
}

func (m Multi) Close() error {
	var first error
	for _, ind := range m {
		if err := ind.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
