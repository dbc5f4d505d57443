// ABOUTME: Player callback contract
// ABOUTME: Lifecycle, buffer status and metadata notifications with a func adapter
package player

import "log"

// Callback receives session notifications. Methods are called from
// pipeline goroutines and must not block.
type Callback interface {
	// Started is called when the device starts playing
	Started()

	// BufferStatus reports how much audio is queued in the device
	BufferStatus(isPlaying bool, bufferedMs, capacityMs int)

	// Stopped is called once per session after all resources are released.
	// perf is the decode speed relative to real time, in percent.
	Stopped(perf int)

	// FatalError reports the error that aborted a session
	FatalError(err error)

	// Metadata reports a stream property such as a response header
	Metadata(key, value string)
}

// Callbacks adapts optional functions to Callback
type Callbacks struct {
	OnStarted      func()
	OnBufferStatus func(isPlaying bool, bufferedMs, capacityMs int)
	OnStopped      func(perf int)
	OnFatalError   func(err error)
	OnMetadata     func(key, value string)
}

// Started implements Callback
func (c Callbacks) Started() {
	if c.OnStarted != nil {
		c.OnStarted()
	}
}

// BufferStatus implements Callback
func (c Callbacks) BufferStatus(isPlaying bool, bufferedMs, capacityMs int) {
	if c.OnBufferStatus != nil {
		c.OnBufferStatus(isPlaying, bufferedMs, capacityMs)
	}
}

// Stopped implements Callback
func (c Callbacks) Stopped(perf int) {
	if c.OnStopped != nil {
		c.OnStopped(perf)
	}
}

// FatalError implements Callback
func (c Callbacks) FatalError(err error) {
	if c.OnFatalError != nil {
		c.OnFatalError(err)
	} else {
		log.Printf("Player error: %v", err)
	}
}

// Metadata implements Callback
func (c Callbacks) Metadata(key, value string) {
	if c.OnMetadata != nil {
		c.OnMetadata(key, value)
	}
}
