// Package events manages environmental events: rectangular areas that
// modulate local energy regeneration for a limited number of ticks. The
// energy field consumes the active list read-only.
package events

import (
	"math/rand"

	"github.com/pthm-cable/gridlife/config"
)

// Type classifies an event's effect on tile energy regeneration.
type Type uint8

const (
	Bloom   Type = iota // Boosts regeneration
	Drought             // Suppresses regeneration and drains energy
	Storm               // Adds flat regeneration, mild drain
)

// Rect is an axis-aligned tile rectangle.
type Rect struct {
	Row, Col      int
	Height, Width int
}

// Contains reports whether the tile lies inside the rectangle.
func (r Rect) Contains(row, col int) bool {
	return row >= r.Row && row < r.Row+r.Height && col >= r.Col && col < r.Col+r.Width
}

// Event is one active environmental event.
type Event struct {
	Type      Type
	Strength  float64 // [0,1]
	Area      Rect
	Remaining int // Ticks until expiry
}

// Manager owns the active event list and spawns new events stochastically.
type Manager struct {
	rows, cols int
	cfg        config.EventsConfig
	rng        *rand.Rand
	active     []Event
}

// NewManager creates an event manager for a grid of the given size.
func NewManager(rows, cols int, cfg config.EventsConfig, rng *rand.Rand) *Manager {
	return &Manager{rows: rows, cols: cols, cfg: cfg, rng: rng}
}

// Active returns the current events. The slice is owned by the manager and
// valid until the next Advance call.
func (m *Manager) Active() []Event {
	return m.active
}

// Advance ages out expired events and rolls for a new one.
func (m *Manager) Advance() {
	kept := m.active[:0]
	for _, ev := range m.active {
		ev.Remaining--
		if ev.Remaining > 0 {
			kept = append(kept, ev)
		}
	}
	m.active = kept

	if len(m.active) < m.cfg.MaxActive && m.rng.Float64() < m.cfg.SpawnChance {
		m.active = append(m.active, m.spawn())
	}
}

// Inject adds an event directly, clamping its area to the grid. Used by
// hosts and tests.
func (m *Manager) Inject(ev Event) {
	ev.Area = m.clampArea(ev.Area)
	if ev.Remaining > 0 && ev.Area.Width > 0 && ev.Area.Height > 0 {
		m.active = append(m.active, ev)
	}
}

func (m *Manager) spawn() Event {
	span := m.cfg.MaxSpan
	if span < 2 {
		span = 2
	}
	h := 2 + m.rng.Intn(span-1)
	w := 2 + m.rng.Intn(span-1)
	ev := Event{
		Type:     Type(m.rng.Intn(3)),
		Strength: m.cfg.MinStrength + m.rng.Float64()*(m.cfg.MaxStrength-m.cfg.MinStrength),
		Area: Rect{
			Row:    m.rng.Intn(maxInt(1, m.rows-h)),
			Col:    m.rng.Intn(maxInt(1, m.cols-w)),
			Height: h,
			Width:  w,
		},
		Remaining: m.cfg.MinDuration + m.rng.Intn(maxInt(1, m.cfg.MaxDuration-m.cfg.MinDuration)),
	}
	ev.Area = m.clampArea(ev.Area)
	return ev
}

func (m *Manager) clampArea(a Rect) Rect {
	if a.Row < 0 {
		a.Row = 0
	}
	if a.Col < 0 {
		a.Col = 0
	}
	if a.Row+a.Height > m.rows {
		a.Height = m.rows - a.Row
	}
	if a.Col+a.Width > m.cols {
		a.Width = m.cols - a.Col
	}
	return a
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
