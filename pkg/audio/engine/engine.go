// ABOUTME: Audio engine lifecycle over an injectable backend
// ABOUTME: Tracks devices so suspend and dispose reach every open stream
package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	log "github.com/sirupsen/logrus"
)

// ErrClosed is returned when opening devices on a disposed engine
var ErrClosed = errors.New("engine: closed")

// State is the engine lifecycle state
type State int

const (
	// StateClosed means no context exists
	StateClosed State = iota
	StateRunning
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	default:
		return "closed"
	}
}

// Device is a started or stoppable host audio stream
type Device interface {
	Start() error
	Stop() error
	Uninit()
}

// Backend creates devices on one host audio context
type Backend interface {
	InitDevice(config malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) (Device, error)
	Close() error
}

// BackendFactory creates a backend context
type BackendFactory func() (Backend, error)

// Engine manages one backend context and its devices
type Engine struct {
	mu      sync.Mutex
	factory BackendFactory
	backend Backend
	state   State
	devices []Device
}

// New creates an engine. A nil factory uses malgo.
func New(factory BackendFactory) *Engine {
	if factory == nil {
		factory = NewMalgoBackend
	}
	return &Engine{factory: factory}
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Ensure makes the context usable: creates it if missing, resumes it if
// suspended, recreates it after Dispose
func (e *Engine) Ensure() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureLocked()
}

func (e *Engine) ensureLocked() error {
	switch e.state {
	case StateRunning:
		return nil

	case StateSuspended:
		for _, d := range e.devices {
			if err := d.Start(); err != nil {
				return fmt.Errorf("failed to resume device: %w", err)
			}
		}
		e.state = StateRunning
		log.Debug("Audio engine resumed")
		return nil

	default:
		backend, err := e.factory()
		if err != nil {
			return fmt.Errorf("failed to create audio context: %w", err)
		}
		e.backend = backend
		e.state = StateRunning
		log.Debug("Audio engine created")
		return nil
	}
}

// Suspend stops every device but keeps the context
func (e *Engine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateRunning {
		return nil
	}

	var errs []error
	for _, d := range e.devices {
		if err := d.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	e.state = StateSuspended
	return errors.Join(errs...)
}

// Dispose stops and releases every device and the context. A later Ensure
// creates a fresh context.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return nil
	}

	var errs []error
	for _, d := range e.devices {
		if e.state == StateRunning {
			if err := d.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
		d.Uninit()
	}
	e.devices = nil

	if err := e.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close audio context: %w", err))
	}
	e.backend = nil
	e.state = StateClosed

	log.Debug("Audio engine disposed")
	return errors.Join(errs...)
}

// OpenDevice ensures the context, then initializes and starts a device on
// it. The engine tracks the device until CloseDevice or Dispose.
func (e *Engine) OpenDevice(config malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) (Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureLocked(); err != nil {
		return nil, err
	}

	device, err := e.backend.InitDevice(config, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}

	e.devices = append(e.devices, device)
	return device, nil
}

// CloseDevice stops and releases a device opened with OpenDevice
func (e *Engine) CloseDevice(device Device) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, d := range e.devices {
		if d != device {
			continue
		}
		e.devices = append(e.devices[:i], e.devices[i+1:]...)

		var err error
		if e.state == StateRunning {
			err = d.Stop()
		}
		d.Uninit()
		return err
	}
	return nil
}

// Devices returns the number of open devices
func (e *Engine) Devices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.devices)
}
