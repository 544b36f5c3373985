// ABOUTME: malgo backend for the audio engine
// ABOUTME: Wraps a miniaudio context allocated through malgo
package engine

import (
	"fmt"

	"github.com/gen2brain/malgo"
	log "github.com/sirupsen/logrus"
)

type malgoBackend struct {
	ctx *malgo.AllocatedContext
}

// NewMalgoBackend allocates a miniaudio context with default backends
func NewMalgoBackend() (Backend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debugf("miniaudio: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	return &malgoBackend{ctx: ctx}, nil
}

func (b *malgoBackend) InitDevice(config malgo.DeviceConfig, callbacks malgo.DeviceCallbacks) (Device, error) {
	device, err := malgo.InitDevice(b.ctx.Context, config, callbacks)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (b *malgoBackend) Close() error {
	err := b.ctx.Uninit()
	b.ctx.Free()
	return err
}
