package app

import (
	"context"
	"time"
)

// ShutdownManager runs the teardown steps of the appliance in order. Nil
// steps are skipped.
type ShutdownManager struct {
	// PowerTimeout bounds the power-off command.
	PowerTimeout time.Duration

	// StopDevices stops hotplug polling so no routing races the engine stop.
	StopDevices func()

	// StopEngine stops the synthesis engine.
	StopEngine func()

	// ReleaseIndicator turns the indicator off and releases it. When the
	// machine powers off it is skipped so the stopping blink stays visible
	// until the OS halts.
	ReleaseIndicator func() error

	// Cleanup closes the event feed and any other resources.
	Cleanup func()

	// PowerOff halts the machine. It runs last.
	PowerOff func(ctx context.Context) error
}

// NewShutdownManager creates a ShutdownManager with a 10-second power-off
// timeout.
func NewShutdownManager() *ShutdownManager {
	return &ShutdownManager{
		PowerTimeout: 10 * time.Second,
	}
}

// Shutdown performs the teardown:
// 1. Stop device polling
// 2. Stop the engine
// 3. Run cleanup
// 4. Power off
// 5. Release the indicator, unless power-off succeeded
// A failing step does not prevent later ones; the first error is returned.
func (sm *ShutdownManager) Shutdown() error {
	var first error

	if sm.StopDevices != nil {
		sm.StopDevices()
	}

	if sm.StopEngine != nil {
		sm.StopEngine()
	}

	if sm.Cleanup != nil {
		sm.Cleanup()
	}

	release := true
	if sm.PowerOff != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sm.PowerTimeout)
		defer cancel()
		if err := sm.PowerOff(ctx); err != nil {
			first = err
		} else {
			release = false
		}
	}

	if release && sm.ReleaseIndicator != nil {
		if err := sm.ReleaseIndicator(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
