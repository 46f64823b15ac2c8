package movement

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// UpdateResult is a bitmask of what happened during one update step.
type UpdateResult uint8

const (
	ResultNone        UpdateResult = 0x01
	ResultArrived     UpdateResult = 0x02
	ResultNextCycle   UpdateResult = 0x04
	ResultNextSegment UpdateResult = 0x08
	ResultJustArrived UpdateResult = 0x10
)

// State is the coarse lifecycle of a MoveSpline.
type State uint8

const (
	StateIdle     State = iota // never initialized or stop spline
	StateRunning               // moving along a segment
	StateArrived               // reached a waypoint on the last update
	StateFinished              // terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateArrived:
		return "arrived"
	case StateFinished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", s)
}

// minimalDuration is the timestamp of the first point of a timed spline.
const minimalDuration = 1

// MoveSpline is a point moving along a linear or Catmull-Rom curve,
// optionally cyclic, with an optional vertical fall or parabolic overlay.
// Time is measured in milliseconds; the spline length table stores the
// timestamp of every point.
type MoveSpline struct {
	spline *Spline[int32]
	facing FacingInfo
	id     uint32
	flags  MoveSplineFlag

	timePassed           int32
	verticalAcceleration float32
	initialOrientation   float32
	effectStartTime      int32
	pointIdx             int
	pointIdxOffset       int32
	lastResult           UpdateResult

	OnTransport bool
}

// NewMoveSpline returns a finalized, uninitialized spline.
func NewMoveSpline() *MoveSpline {
	return &MoveSpline{
		spline: NewSpline[int32](),
		flags:  FlagDone,
	}
}

// Initialize (re)starts the spline from args. A Done flag in args produces
// a stop spline that is never Initialized.
func (m *MoveSpline) Initialize(args InitArgs) {
	m.flags = args.Flags
	m.facing = args.Facing
	m.id = args.SplineID
	m.pointIdxOffset = args.PathIdxOffset
	m.initialOrientation = args.InitialOrientation

	m.timePassed = 0
	m.verticalAcceleration = 0
	m.effectStartTime = 0
	m.lastResult = 0

	if args.Flags.Has(FlagDone) {
		m.spline.Clear()
		return
	}

	m.initSpline(args)

	// duration is known now, so the parabolic acceleration can be derived
	if args.Flags.Has(FlagParabolic | FlagAnimation) {
		m.effectStartTime = int32(float32(m.Duration()) * args.TimePerc)
		if args.Flags.Has(FlagParabolic) && m.effectStartTime < m.Duration() {
			d := MSToSec(m.Duration() - m.effectStartTime)
			m.verticalAcceleration = args.ParabolicAmplitude * 8 / (d * d)
		}
	}
}

func (m *MoveSpline) initSpline(args InitArgs) {
	mode := ModeLinear
	if args.Flags.IsSmooth() {
		mode = ModeCatmullRom
	}
	if args.Flags.Has(FlagCyclic) {
		// while entering the cycle the first point is not part of the loop
		cyclicPoint := 0
		if args.Flags.Has(FlagEnterCycle) {
			cyclicPoint = 1
		}
		m.spline.InitCyclicSpline(args.Path, mode, cyclicPoint)
	} else {
		m.spline.InitSpline(args.Path, mode)
	}

	if m.flags.Has(FlagFalling) {
		startElevation := m.spline.Point(m.spline.First())[2]
		m.spline.InitLengthsWith(func(s *Spline[int32], i int) int32 {
			return int32(ComputeFallTime(startElevation-s.Point(i + 1)[2], false) * 1000)
		})
	} else {
		velocityInv := 1000 / args.Velocity
		t := int32(minimalDuration)
		m.spline.InitLengthsWith(func(s *Spline[int32], i int) int32 {
			t += int32(s.SegLength(i) * velocityInv)
			return t
		})
	}

	if m.spline.Length() < minimalDuration {
		slog.Error("movespline zero length spline, wrong input data?", "splineID", args.SplineID)
		if m.spline.IsCyclic() {
			m.spline.SetLength(m.spline.Last(), 1000)
		} else {
			m.spline.SetLength(m.spline.Last(), 1)
		}
	}
	m.pointIdx = m.spline.First()
}

// Initialized reports whether the spline has a path.
func (m *MoveSpline) Initialized() bool { return !m.spline.Empty() }

func (m *MoveSpline) mustBeInitialized() {
	if !m.Initialized() {
		panic("movement: MoveSpline used before Initialize")
	}
}

// UpdateState advances the spline by diff milliseconds.
func (m *MoveSpline) UpdateState(diff int32) {
	m.UpdateStateWith(diff, nil)
}

// UpdateStateWith advances the spline by diff milliseconds and calls
// handler once per step. A single update may cross several waypoints.
func (m *MoveSpline) UpdateStateWith(diff int32, handler func(UpdateResult)) {
	m.mustBeInitialized()
	for {
		res := m.updateState(&diff)
		m.lastResult = res
		if handler != nil {
			handler(res)
		}
		if diff <= 0 {
			return
		}
	}
}

func (m *MoveSpline) nextTimestamp() int32 { return m.spline.LengthAt(m.pointIdx + 1) }

func (m *MoveSpline) segmentTimeElapsed() int32 { return m.nextTimestamp() - m.timePassed }

func (m *MoveSpline) updateState(diff *int32) UpdateResult {
	if m.Finalized() {
		*diff = 0
		return ResultArrived
	}

	result := ResultNone

	minimalDiff := min(*diff, m.segmentTimeElapsed())
	if minimalDiff < 0 {
		panic(fmt.Sprintf("movement: negative update step %d", minimalDiff))
	}
	m.timePassed += minimalDiff
	*diff -= minimalDiff

	if m.timePassed >= m.nextTimestamp() {
		m.pointIdx++
		switch {
		case m.pointIdx < m.spline.Last():
			result = ResultNextSegment
		case m.spline.IsCyclic():
			m.pointIdx = m.spline.First()
			m.timePassed %= m.Duration()
			result = ResultNextCycle
			if m.flags.Has(FlagEnterCycle) {
				m.leaveEnterCycle()
			}
		default:
			m.Finalize()
			*diff = 0
			result = ResultArrived | ResultJustArrived
		}
	}
	return result
}

// leaveEnterCycle drops the first path point after the first full cycle.
// That point was the unit position before entering the cycle. The new
// cycle keeps the previous cycle duration.
func (m *MoveSpline) leaveEnterCycle() {
	m.flags &^= FlagEnterCycle

	points := m.spline.Points()
	args := NewInitArgs(m.spline.PointCount())
	args.Path = append(args.Path, points[m.spline.First()+1:m.spline.Last()]...)
	args.Facing = m.facing
	args.Flags = m.flags
	args.PathIdxOffset = m.pointIdxOffset
	args.SplineID = m.id
	args.InitialOrientation = m.initialOrientation
	args.Velocity = 1
	args.HasVelocity = true
	args.TransformForTransport = m.OnTransport
	if !args.Validate() {
		return
	}

	temp := NewMoveSpline()
	temp.Initialize(args)
	args.Velocity = float32(temp.Duration()) / float32(m.Duration())
	if args.Validate() {
		m.initSpline(args)
	}
}

// Finalize marks the spline done at its last point.
func (m *MoveSpline) Finalize() {
	m.flags |= FlagDone
	m.pointIdx = m.spline.Last() - 1
	m.timePassed = m.Duration()
}

// Interrupt marks the spline done where it currently is.
func (m *MoveSpline) Interrupt() { m.flags |= FlagDone }

// ComputePosition returns the current interpolated location.
func (m *MoveSpline) ComputePosition() Location {
	m.mustBeInitialized()

	u := float32(1)
	segTime := m.spline.LengthBetween(m.pointIdx, m.pointIdx+1)
	if segTime > 0 {
		u = float32(m.timePassed-m.spline.LengthAt(m.pointIdx)) / float32(segTime)
	}
	u = min(max(u, 0), 1)

	c := Location{
		Vec3:        m.spline.EvaluatePercentAt(m.pointIdx, u),
		Orientation: m.initialOrientation,
	}

	switch {
	case m.flags.Has(FlagAnimation):
		// animation disables falling and parabolic movement
	case m.flags.Has(FlagParabolic):
		c.Vec3[2] = m.computeParabolicElevation(c.Vec3[2])
	case m.flags.Has(FlagFalling):
		c.Vec3[2] = m.computeFallElevation()
	}

	if m.flags.Has(FlagDone) && m.facing.Type != MonsterMoveNormal {
		switch {
		case m.flags.Has(FlagFinalAngle):
			c.Orientation = m.facing.Angle
		case m.flags.Has(FlagFinalPoint):
			c.Orientation = float32(math.Atan2(float64(m.facing.Spot[1]-c.Vec3[1]), float64(m.facing.Spot[0]-c.Vec3[0])))
		}
		// target facing is resolved by the caller
		return c
	}

	if !m.flags.Has(FlagOrientationFixed | FlagFalling) {
		d := m.spline.EvaluateDerivativeAt(m.pointIdx, u)
		c.Orientation = float32(math.Atan2(float64(d[1]), float64(d[0])))
	}
	if m.flags.Has(FlagOrientationInversed) {
		c.Orientation = -c.Orientation
	}
	return c
}

func (m *MoveSpline) computeParabolicElevation(z float32) float32 {
	if m.timePassed > m.effectStartTime {
		passed := MSToSec(m.timePassed - m.effectStartTime)
		duration := MSToSec(m.Duration() - m.effectStartTime)
		// -a*x*x + b*x + c
		z += (duration - passed) * 0.5 * m.verticalAcceleration * passed
	}
	return z
}

func (m *MoveSpline) computeFallElevation() float32 {
	zNow := m.spline.Point(m.spline.First())[2] - ComputeFallElevation(MSToSec(m.timePassed), false, 0)
	return max(zNow, m.FinalDestination()[2])
}

// State returns the lifecycle state.
func (m *MoveSpline) State() State {
	switch {
	case !m.Initialized():
		return StateIdle
	case m.Finalized():
		return StateFinished
	case m.lastResult&(ResultNextSegment|ResultNextCycle) != 0:
		return StateArrived
	}
	return StateRunning
}

// ID returns the spline id.
func (m *MoveSpline) ID() uint32 { return m.id }

// Flags returns the current flags.
func (m *MoveSpline) Flags() MoveSplineFlag { return m.flags }

// Facing returns the final facing.
func (m *MoveSpline) Facing() FacingInfo { return m.facing }

// Finalized reports whether the spline is done.
func (m *MoveSpline) Finalized() bool { return m.flags.Has(FlagDone) }

// IsCyclic reports whether the spline loops.
func (m *MoveSpline) IsCyclic() bool { return m.flags.Has(FlagCyclic) }

// IsFalling reports whether the fall overlay is active.
func (m *MoveSpline) IsFalling() bool { return m.flags.Has(FlagFalling) }

// IsWalking reports whether walk mode is set.
func (m *MoveSpline) IsWalking() bool { return m.flags.Has(FlagWalkmode) }

// HasAnimation reports whether an animation is attached.
func (m *MoveSpline) HasAnimation() bool { return m.flags.Has(FlagAnimation) }

// AnimationType returns the animation id.
func (m *MoveSpline) AnimationType() uint8 { return m.flags.AnimID() }

// HasStarted reports whether any time has passed.
func (m *MoveSpline) HasStarted() bool { return m.timePassed > 0 }

// Duration is the total spline time in milliseconds.
func (m *MoveSpline) Duration() int32 {
	if !m.Initialized() {
		return 0
	}
	return m.spline.Length()
}

// TimePassed is the elapsed time in milliseconds.
func (m *MoveSpline) TimePassed() int32 { return m.timePassed }

// TimeElapsed is the remaining time in milliseconds.
func (m *MoveSpline) TimeElapsed() int32 { return m.Duration() - m.timePassed }

// Spline exposes the underlying timed spline.
func (m *MoveSpline) Spline() *Spline[int32] { return m.spline }

// CurrentSplineIdx returns the current segment index.
func (m *MoveSpline) CurrentSplineIdx() int { return m.pointIdx }

// FinalDestination returns the last point, or zero when uninitialized.
func (m *MoveSpline) FinalDestination() mgl32.Vec3 {
	if !m.Initialized() {
		return mgl32.Vec3{}
	}
	return m.spline.Point(m.spline.Last())
}

// CurrentDestination returns the end of the current segment.
func (m *MoveSpline) CurrentDestination() mgl32.Vec3 {
	if !m.Initialized() {
		return mgl32.Vec3{}
	}
	return m.spline.Point(m.pointIdx + 1)
}

// CurrentPathIdx returns the index of the next path point in the caller's
// original path numbering.
func (m *MoveSpline) CurrentPathIdx() int32 {
	point := m.pointIdxOffset + int32(m.pointIdx-m.spline.First())
	if m.Finalized() {
		point++
	}
	if m.IsCyclic() && m.Initialized() {
		point %= int32(m.spline.Last() - m.spline.First())
	}
	return point
}

func (m *MoveSpline) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MoveSpline\n")
	fmt.Fprintf(&b, "spline Id: %d\n", m.id)
	fmt.Fprintf(&b, "flags: %s\n", m.flags)
	switch m.facing.Type {
	case MonsterMoveFacingAngle:
		fmt.Fprintf(&b, "facing  angle: %f\n", m.facing.Angle)
	case MonsterMoveFacingTarget:
		fmt.Fprintf(&b, "facing target: %d\n", m.facing.Target)
	case MonsterMoveFacingSpot:
		fmt.Fprintf(&b, "facing  point: %v\n", m.facing.Spot)
	}
	fmt.Fprintf(&b, "time passed: %d\n", m.timePassed)
	if m.Initialized() {
		fmt.Fprintf(&b, "total  time: %d\n", m.Duration())
	}
	fmt.Fprintf(&b, "spline point Id: %d\n", m.pointIdx)
	fmt.Fprintf(&b, "path  point  Id: %d\n", m.CurrentPathIdx())
	b.WriteString(m.spline.String())
	return b.String()
}
