package systems

// ZoneRequest describes a proposed mating geometry: both parent positions
// and, when already chosen, the spawn tile.
type ZoneRequest struct {
	ParentA Cell
	ParentB Cell
	Spawn   *Cell
}

// ZoneDecision is the outcome of a zone check. Reason is set when rejected.
type ZoneDecision struct {
	Allowed bool
	Reason  string
}

// ZonePolicy restricts where mating and spawning may occur. Rejections are
// ordinary outcomes, not errors.
type ZonePolicy interface {
	ValidateArea(req ZoneRequest) ZoneDecision
	FilterSpawnCandidates(cells []Cell) []Cell
}

// AllowAllZones accepts every request. The default policy.
type AllowAllZones struct{}

// ValidateArea always allows.
func (AllowAllZones) ValidateArea(ZoneRequest) ZoneDecision {
	return ZoneDecision{Allowed: true}
}

// FilterSpawnCandidates returns the input unchanged.
func (AllowAllZones) FilterSpawnCandidates(cells []Cell) []Cell { return cells }

// Span is an axis-aligned tile rectangle used by RectZonePolicy.
type Span struct {
	Row, Col      int
	Height, Width int
}

// Contains reports whether the cell lies inside the span.
func (s Span) Contains(c Cell) bool {
	return c.Row >= s.Row && c.Row < s.Row+s.Height && c.Col >= s.Col && c.Col < s.Col+s.Width
}

// RectZonePolicy restricts reproduction to a set of allowed rectangles and
// excludes denied rectangles. An empty allow list permits everywhere not
// denied.
type RectZonePolicy struct {
	Allowed []Span
	Denied  []Span
}

// ValidateArea checks both parents and the spawn tile when present.
func (p *RectZonePolicy) ValidateArea(req ZoneRequest) ZoneDecision {
	cells := []Cell{req.ParentA, req.ParentB}
	if req.Spawn != nil {
		cells = append(cells, *req.Spawn)
	}
	for _, c := range cells {
		if !p.permits(c) {
			return ZoneDecision{Allowed: false, Reason: "outside reproduction zone"}
		}
	}
	return ZoneDecision{Allowed: true}
}

// FilterSpawnCandidates drops cells the policy does not permit.
func (p *RectZonePolicy) FilterSpawnCandidates(cells []Cell) []Cell {
	out := cells[:0]
	for _, c := range cells {
		if p.permits(c) {
			out = append(out, c)
		}
	}
	return out
}

func (p *RectZonePolicy) permits(c Cell) bool {
	for _, d := range p.Denied {
		if d.Contains(c) {
			return false
		}
	}
	if len(p.Allowed) == 0 {
		return true
	}
	for _, a := range p.Allowed {
		if a.Contains(c) {
			return true
		}
	}
	return false
}
