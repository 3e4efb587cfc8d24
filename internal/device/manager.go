package device

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mixcap/mixcap/internal/logging"
	"github.com/mixcap/mixcap/internal/media"
)

// Manager is the process-wide driver registry. Platform drivers register at
// startup; embedding applications may register their own camera/microphone
// drivers through Register.
type Manager struct {
	mu      sync.RWMutex
	drivers []Driver
	log     *slog.Logger
}

// NewManager creates an empty driver registry.
func NewManager() *Manager {
	return &Manager{log: logging.L("device")}
}

// Register adds a driver. A driver with the same device id replaces the
// previous registration.
func (m *Manager) Register(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := d.Info().DeviceID
	for i, existing := range m.drivers {
		if existing.Info().DeviceID == id {
			m.drivers[i] = d
			return
		}
	}
	m.drivers = append(m.drivers, d)
}

// Enumerate lists every registered device.
func (m *Manager) Enumerate() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.drivers))
	for _, d := range m.drivers {
		out = append(out, d.Info())
	}
	return out
}

func (m *Manager) query(kind Kind) []Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Driver
	for _, d := range m.drivers {
		if d.Info().Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// probe opens and immediately closes the first driver of the given kind.
// Enumeration labels are only complete once the user granted access, so the
// enumerators probe first and ignore probe failure.
func (m *Manager) probe(kind Kind) {
	drivers := m.query(kind)
	if len(drivers) == 0 {
		return
	}
	stream, err := drivers[0].Open(Constraints{})
	if err != nil {
		m.log.Debug("Device probe failed", "kind", kind, logging.KeyError, err)
		return
	}
	stream.Stop()
}

// AudioInputs lists audio input devices only.
func (m *Manager) AudioInputs() []Info {
	m.probe(KindAudioInput)
	return m.enumerateKind(KindAudioInput)
}

// VideoInputs lists video input devices only.
func (m *Manager) VideoInputs() []Info {
	m.probe(KindVideoInput)
	return m.enumerateKind(KindVideoInput)
}

func (m *Manager) enumerateKind(kind Kind) []Info {
	all := m.Enumerate()
	out := make([]Info, 0, len(all))
	for _, info := range all {
		if info.Kind == kind {
			out = append(out, info)
		}
	}
	return out
}

// Open acquires a stream from the driver matching the constraints' device
// id, or from the first driver of the kind when no id is given.
func (m *Manager) Open(kind Kind, c Constraints) (*media.Stream, error) {
	drivers := m.query(kind)
	if len(drivers) == 0 {
		return nil, fmt.Errorf("%w: kind %s", ErrNoDevice, kind)
	}
	if c.DeviceID == "" {
		return drivers[0].Open(c)
	}
	for _, d := range drivers {
		if d.Info().DeviceID == c.DeviceID {
			return d.Open(c)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDevice, c.DeviceID)
}
