package movement

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MonsterMoveType describes how a unit faces at the end of a spline.
type MonsterMoveType uint8

const (
	MonsterMoveNormal MonsterMoveType = iota
	MonsterMoveFacingSpot
	MonsterMoveFacingTarget
	MonsterMoveFacingAngle
)

// FacingInfo is the final facing of a spline.
type FacingInfo struct {
	Spot   mgl32.Vec3
	Target uint64
	Angle  float32
	Type   MonsterMoveType
}

// Location is a position with an orientation in radians.
type Location struct {
	mgl32.Vec3
	Orientation float32
}

// InitArgs carries everything MoveSpline.Initialize needs.
type InitArgs struct {
	Path                  []mgl32.Vec3
	Facing                FacingInfo
	Flags                 MoveSplineFlag
	PathIdxOffset         int32
	Velocity              float32
	ParabolicAmplitude    float32
	TimePerc              float32
	SplineID              uint32
	InitialOrientation    float32
	HasVelocity           bool
	TransformForTransport bool
}

// NewInitArgs returns args with room for pathCapacity points.
func NewInitArgs(pathCapacity int) InitArgs {
	return InitArgs{
		Path:                  make([]mgl32.Vec3, 0, pathCapacity),
		TransformForTransport: true,
	}
}

// maxPathOffset limits how far intermediate points of a linear path may lie
// from the middle of its endpoints; packed paths store 11-bit offsets.
const maxPathOffset = (1 << 11) / 2

// Validate reports whether the args describe a spline that can be launched.
// Failures are logged.
func (a *InitArgs) Validate() bool {
	switch {
	case len(a.Path) <= 1:
		slog.Error("movespline args invalid", "check", "path size > 1", "size", len(a.Path), "splineID", a.SplineID)
		return false
	case a.Velocity < 0.01:
		slog.Error("movespline args invalid", "check", "velocity >= 0.01", "velocity", a.Velocity, "splineID", a.SplineID)
		return false
	case a.TimePerc < 0 || a.TimePerc > 1:
		slog.Error("movespline args invalid", "check", "time_perc in [0, 1]", "time_perc", a.TimePerc, "splineID", a.SplineID)
		return false
	case !a.checkPathBounds():
		slog.Error("movespline args invalid", "check", "path bounds", "splineID", a.SplineID)
		return false
	}
	return true
}

func (a *InitArgs) checkPathBounds() bool {
	if a.Flags&MaskCatmullRom != 0 || len(a.Path) <= 2 {
		return true
	}
	middle := a.Path[0].Add(a.Path[len(a.Path)-1]).Mul(0.5)
	for _, p := range a.Path[1 : len(a.Path)-1] {
		off := p.Sub(middle)
		if abs32(off[0]) >= maxPathOffset || abs32(off[1]) >= maxPathOffset || abs32(off[2]) >= maxPathOffset {
			return false
		}
	}
	return true
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
