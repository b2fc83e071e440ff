package capture

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// Device is a malgo-backed [Source]. One Device owns one malgo capture (or
// loopback) device; create two and wrap them in [Multi] for [KindBoth].
type Device struct {
	kind Kind
	cfg  Config
	fn   SampleFunc

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	started bool
}

// Compile-time check that *Device satisfies [Source].
var _ Source = (*Device)(nil)

// NewDevice creates a capture source of the given kind. fn receives PCM
// buffers on the device's data thread. kind must be [KindMicrophone] or
// [KindSystem]; use [NewMulti] for [KindBoth].
func NewDevice(kind Kind, cfg Config, fn SampleFunc) (*Device, error) {
	if kind != KindMicrophone && kind != KindSystem {
		return nil, fmt.Errorf("capture: unsupported device kind %q", kind)
	}
	if fn == nil {
		return nil, fmt.Errorf("capture: sample callback must not be nil")
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Device{kind: kind, cfg: cfg, fn: fn}, nil
}

// Start implements [Source]. It initialises a malgo context and opens the
// device; PCM flows to the callback as soon as Start returns.
func (d *Device) Start(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("capture: init context: %w", err)
	}

	devType := malgo.Capture
	if d.kind == KindSystem {
		devType = malgo.Loopback
	}

	devCfg := malgo.DefaultDeviceConfig(devType)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(d.cfg.Channels)
	devCfg.SampleRate = uint32(d.cfg.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, _ uint32) {
			// malgo reuses its buffer between callbacks; copy before handing off.
			pcm := make([]byte, len(data))
			copy(pcm, data)
			d.fn(pcm)
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, devCfg, callbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("capture: open %s device: %w: %w", d.kind, ErrPermissionDenied, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("capture: start %s device: %w", d.kind, err)
	}

	d.ctx = mctx
	d.device = dev
	d.started = true
	return nil
}

// Stop implements [Source].
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}
	d.device.Uninit()
	d.ctx.Uninit()
	d.ctx.Free()
	d.device = nil
	d.ctx = nil
	d.started = false
	return nil
}
