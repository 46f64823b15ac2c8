package movement

import "strings"

// MoveSplineFlag is the spline flag bitset. The low byte carries the
// animation id when Animation is set.
type MoveSplineFlag uint32

const (
	FlagNone                MoveSplineFlag = 0x00000000
	FlagDone                MoveSplineFlag = 0x00000100
	FlagFalling             MoveSplineFlag = 0x00000200 // not combinable with Parabolic
	FlagNoSpline            MoveSplineFlag = 0x00000400
	FlagParabolic           MoveSplineFlag = 0x00000800 // not combinable with Falling
	FlagWalkmode            MoveSplineFlag = 0x00001000
	FlagFlying              MoveSplineFlag = 0x00002000 // smooth movement, flying animation
	FlagOrientationFixed    MoveSplineFlag = 0x00004000
	FlagFinalPoint          MoveSplineFlag = 0x00008000
	FlagFinalTarget         MoveSplineFlag = 0x00010000
	FlagFinalAngle          MoveSplineFlag = 0x00020000
	FlagCatmullRom          MoveSplineFlag = 0x00040000
	FlagCyclic              MoveSplineFlag = 0x00080000
	FlagEnterCycle          MoveSplineFlag = 0x00100000 // first vertex is dropped after the first cycle
	FlagAnimation           MoveSplineFlag = 0x00200000
	FlagFrozen              MoveSplineFlag = 0x00400000
	FlagTransportEnter      MoveSplineFlag = 0x00800000
	FlagTransportExit       MoveSplineFlag = 0x01000000
	FlagOrientationInversed MoveSplineFlag = 0x08000000

	MaskAnimations  MoveSplineFlag = 0xFF
	MaskFinalFacing                = FlagFinalPoint | FlagFinalTarget | FlagFinalAngle
	MaskCatmullRom                 = FlagFlying | FlagCatmullRom
	// flags that are never sent to clients
	MaskUnused = FlagNoSpline | FlagEnterCycle | FlagFrozen
)

// Has reports whether any of f is set.
func (m MoveSplineFlag) Has(f MoveSplineFlag) bool { return m&f != 0 }

// IsSmooth reports whether the path is Catmull-Rom interpolated.
func (m MoveSplineFlag) IsSmooth() bool { return m&MaskCatmullRom != 0 }

// IsLinear reports whether the path is linearly interpolated.
func (m MoveSplineFlag) IsLinear() bool { return !m.IsSmooth() }

// IsFacing reports whether a final facing is requested.
func (m MoveSplineFlag) IsFacing() bool { return m&MaskFinalFacing != 0 }

// AnimID returns the animation id stored in the low byte.
func (m MoveSplineFlag) AnimID() uint8 { return uint8(m & MaskAnimations) }

// EnableAnimation sets Animation with the given id and clears the
// elevation flags it overrides.
func (m *MoveSplineFlag) EnableAnimation(anim uint8) {
	*m = (*m &^ (MaskAnimations | FlagFalling | FlagParabolic)) | FlagAnimation | MoveSplineFlag(anim)
}

// EnableParabolic sets Parabolic and clears Falling and Animation.
func (m *MoveSplineFlag) EnableParabolic() {
	*m = (*m &^ (MaskAnimations | FlagFalling | FlagAnimation)) | FlagParabolic
}

// EnableFalling sets Falling and clears Parabolic and Animation.
func (m *MoveSplineFlag) EnableFalling() {
	*m = (*m &^ (MaskAnimations | FlagParabolic | FlagAnimation)) | FlagFalling
}

// EnableCatmullRom sets CatmullRom.
func (m *MoveSplineFlag) EnableCatmullRom() { *m |= FlagCatmullRom }

// EnableFacingPoint selects point facing.
func (m *MoveSplineFlag) EnableFacingPoint() { *m = (*m &^ MaskFinalFacing) | FlagFinalPoint }

// EnableFacingAngle selects angle facing.
func (m *MoveSplineFlag) EnableFacingAngle() { *m = (*m &^ MaskFinalFacing) | FlagFinalAngle }

// EnableFacingTarget selects target facing.
func (m *MoveSplineFlag) EnableFacingTarget() { *m = (*m &^ MaskFinalFacing) | FlagFinalTarget }

// EnableTransportEnter sets TransportEnter and clears TransportExit.
func (m *MoveSplineFlag) EnableTransportEnter() {
	*m = (*m &^ FlagTransportExit) | FlagTransportEnter
}

// EnableTransportExit sets TransportExit and clears TransportEnter.
func (m *MoveSplineFlag) EnableTransportExit() {
	*m = (*m &^ FlagTransportEnter) | FlagTransportExit
}

// Set sets or clears f.
func (m *MoveSplineFlag) Set(f MoveSplineFlag, on bool) {
	if on {
		*m |= f
	} else {
		*m &^= f
	}
}

var flagNames = []struct {
	flag MoveSplineFlag
	name string
}{
	{FlagDone, "Done"},
	{FlagFalling, "Falling"},
	{FlagNoSpline, "No_Spline"},
	{FlagParabolic, "Parabolic"},
	{FlagWalkmode, "Walkmode"},
	{FlagFlying, "Flying"},
	{FlagOrientationFixed, "OrientationFixed"},
	{FlagFinalPoint, "Final_Point"},
	{FlagFinalTarget, "Final_Target"},
	{FlagFinalAngle, "Final_Angle"},
	{FlagCatmullRom, "Catmullrom"},
	{FlagCyclic, "Cyclic"},
	{FlagEnterCycle, "Enter_Cycle"},
	{FlagAnimation, "Animation"},
	{FlagFrozen, "Frozen"},
	{FlagTransportEnter, "TransportEnter"},
	{FlagTransportExit, "TransportExit"},
	{FlagOrientationInversed, "OrientationInversed"},
}

func (m MoveSplineFlag) String() string {
	var names []string
	for _, fn := range flagNames {
		if m&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, " ")
}
