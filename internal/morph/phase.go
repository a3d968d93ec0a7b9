package morph

import "fmt"

// Shape identifies one of the three point sets in the cycle.
type Shape int

const (
	ShapeSphere Shape = iota
	ShapeKingdom
	ShapeMuseum
)

func (s Shape) String() string {
	switch s {
	case ShapeSphere:
		return "sphere"
	case ShapeKingdom:
		return "kingdom"
	case ShapeMuseum:
		return "museum"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// Phase is one transition of the perpetual three-step cycle.
type Phase int

const (
	SphereToKingdom Phase = iota
	KingdomToMuseum
	MuseumToSphere

	phaseCount = 3
)

var phaseShapes = [phaseCount][2]Shape{
	SphereToKingdom: {ShapeSphere, ShapeKingdom},
	KingdomToMuseum: {ShapeKingdom, ShapeMuseum},
	MuseumToSphere:  {ShapeMuseum, ShapeSphere},
}

// From returns the shape the phase starts at.
func (p Phase) From() Shape { return phaseShapes[p.normalized()][0] }

// To returns the shape the phase ends at.
func (p Phase) To() Shape { return phaseShapes[p.normalized()][1] }

// Next returns the phase that follows p.
func (p Phase) Next() Phase { return (p.normalized() + 1) % phaseCount }

func (p Phase) normalized() Phase {
	return ((p % phaseCount) + phaseCount) % phaseCount
}

func (p Phase) String() string {
	return fmt.Sprintf("%d:%s->%s", int(p.normalized()), p.From(), p.To())
}

// Mode is the scheduler state.
type Mode int

const (
	Idle Mode = iota // waiting for both loaded shapes
	Morphing
	Paused
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Morphing:
		return "morphing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
