package movement

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Init builds InitArgs for a unit standing at a known location and
// launches them into a MoveSpline.
type Init struct {
	args  InitArgs
	start Location
	speed float32
}

// NewInit starts a builder for a unit at start moving with the given
// default speed (units per second).
func NewInit(start Location, speed float32) *Init {
	return &Init{
		args:  NewInitArgs(16),
		start: start,
		speed: speed,
	}
}

// Args exposes the arguments being built.
func (i *Init) Args() *InitArgs { return &i.args }

// MoveTo sets a single-segment path from the start to dest.
func (i *Init) MoveTo(dest mgl32.Vec3) *Init {
	i.args.PathIdxOffset = 0
	i.args.Path = append(i.args.Path[:0], i.start.Vec3, dest)
	return i
}

// MovebyPath sets the path to start followed by controls. pathOffset is the
// index of controls[0] in the caller's waypoint numbering.
func (i *Init) MovebyPath(controls []mgl32.Vec3, pathOffset int32) *Init {
	i.args.PathIdxOffset = pathOffset
	i.args.Path = append(i.args.Path[:0], i.start.Vec3)
	i.args.Path = append(i.args.Path, controls...)
	return i
}

// SetWalk toggles walk mode.
func (i *Init) SetWalk(enable bool) *Init {
	i.args.Flags.Set(FlagWalkmode, enable)
	return i
}

// SetFly enables flying (smooth) movement.
func (i *Init) SetFly() *Init {
	i.args.Flags |= FlagFlying
	return i
}

// SetSmooth enables Catmull-Rom interpolation.
func (i *Init) SetSmooth() *Init {
	i.args.Flags.EnableCatmullRom()
	return i
}

// SetCyclic makes the path loop. The start position is dropped after the
// first cycle.
func (i *Init) SetCyclic() *Init {
	i.args.Flags |= FlagCyclic | FlagEnterCycle
	return i
}

// SetFall enables free fall elevation.
func (i *Init) SetFall() *Init {
	i.args.Flags.EnableFalling()
	return i
}

// SetParabolic enables a parabolic arc of the given amplitude starting at
// timeShift (fraction of the duration).
func (i *Init) SetParabolic(amplitude, timeShift float32) *Init {
	i.args.TimePerc = timeShift
	i.args.ParabolicAmplitude = amplitude
	i.args.Flags.EnableParabolic()
	return i
}

// SetAnimation plays anim after timeShift of the duration.
func (i *Init) SetAnimation(anim uint8, timeShift float32) *Init {
	i.args.TimePerc = timeShift
	i.args.Flags.EnableAnimation(anim)
	return i
}

// SetFacingAngle faces angle on arrival.
func (i *Init) SetFacingAngle(angle float32) *Init {
	i.args.Facing = FacingInfo{Angle: angle, Type: MonsterMoveFacingAngle}
	i.args.Flags.EnableFacingAngle()
	return i
}

// SetFacingSpot faces spot on arrival.
func (i *Init) SetFacingSpot(spot mgl32.Vec3) *Init {
	i.args.Facing = FacingInfo{Spot: spot, Type: MonsterMoveFacingSpot}
	i.args.Flags.EnableFacingPoint()
	return i
}

// SetFacingTarget faces the object with the given guid on arrival.
func (i *Init) SetFacingTarget(guid uint64) *Init {
	i.args.Facing = FacingInfo{Target: guid, Type: MonsterMoveFacingTarget}
	i.args.Flags.EnableFacingTarget()
	return i
}

// SetOrientationFixed keeps the model orientation during the move.
func (i *Init) SetOrientationFixed(enable bool) *Init {
	i.args.Flags.Set(FlagOrientationFixed, enable)
	return i
}

// SetOrientationInversed makes the unit move backwards.
func (i *Init) SetOrientationInversed() *Init {
	i.args.Flags |= FlagOrientationInversed
	return i
}

// SetVelocity overrides the default speed.
func (i *Init) SetVelocity(v float32) *Init {
	i.args.Velocity = v
	i.args.HasVelocity = true
	return i
}

// SetSplineID tags the spline.
func (i *Init) SetSplineID(id uint32) *Init {
	i.args.SplineID = id
	return i
}

// Launch initializes ms from the built args and returns the duration in
// milliseconds, or 0 when the args are invalid. An empty path stops the
// unit where it stands.
func (i *Init) Launch(ms *MoveSpline) int32 {
	if len(i.args.Path) == 0 {
		return i.Stop(ms)
	}
	i.args.Path[0] = i.start.Vec3
	i.args.InitialOrientation = i.start.Orientation
	if !i.args.HasVelocity {
		i.args.Velocity = i.speed
	}
	if !i.args.Validate() {
		return 0
	}
	ms.Initialize(i.args)
	return ms.Duration()
}

// Stop replaces whatever ms was doing with a stop spline.
func (i *Init) Stop(ms *MoveSpline) int32 {
	if ms.Finalized() {
		return 0
	}
	i.args.Flags = FlagDone
	i.args.Path = append(i.args.Path[:0], i.start.Vec3)
	i.args.InitialOrientation = i.start.Orientation
	ms.Initialize(i.args)
	return 0
}
