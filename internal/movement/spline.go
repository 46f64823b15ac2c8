package movement

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// EvaluationMode selects the interpolation used between control points.
type EvaluationMode uint8

const (
	ModeLinear EvaluationMode = iota
	ModeCatmullRom
	ModeBezier3
	ModeUninitialized
)

func (m EvaluationMode) String() string {
	switch m {
	case ModeLinear:
		return "linear"
	case ModeCatmullRom:
		return "catmullrom"
	case ModeBezier3:
		return "bezier3"
	}
	return "uninitialized"
}

// stepsPerSegment controls Catmull-Rom segment length precision.
const stepsPerSegment = 3

// Weight matrices, row-major: weights = [t³ t² t 1] * M.
var (
	catmullRomCoeffs = [4][4]float32{
		{-0.5, 1.5, -1.5, 0.5},
		{1, -2.5, 2, -0.5},
		{-0.5, 0, 0.5, 0},
		{0, 1, 0, 0},
	}
	bezier3Coeffs = [4][4]float32{
		{-1, 3, -3, 1},
		{3, -6, 3, 0},
		{-3, 3, 0, 0},
		{1, 0, 0, 0},
	}
)

func cEvaluate(v []mgl32.Vec3, t float32, m *[4][4]float32) mgl32.Vec3 {
	tvec := [4]float32{t * t * t, t * t, t, 1}
	return weighted(v, tvec, m)
}

func cEvaluateDerivative(v []mgl32.Vec3, t float32, m *[4][4]float32) mgl32.Vec3 {
	tvec := [4]float32{3 * t * t, 2 * t, 1, 0}
	return weighted(v, tvec, m)
}

func weighted(v []mgl32.Vec3, tvec [4]float32, m *[4][4]float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for col := range 4 {
		var w float32
		for row := range 4 {
			w += tvec[row] * m[row][col]
		}
		if w != 0 {
			out = out.Add(v[col].Mul(w))
		}
	}
	return out
}

// Length is the unit an arc-length table is measured in: float32 distance
// or int32 milliseconds for timed movement.
type Length interface {
	~int32 | ~float32
}

// Spline is a parametric curve over control points with a cumulative
// length table. Every index accepted by the evaluators must lie in
// [First, Last). Using a spline before InitSpline is a programming error
// and panics.
type Spline[L Length] struct {
	points  []mgl32.Vec3
	indexLo int
	indexHi int
	mode    EvaluationMode
	cyclic  bool
	lengths []L
}

// NewSpline returns an uninitialized spline.
func NewSpline[L Length]() *Spline[L] {
	return &Spline[L]{mode: ModeUninitialized}
}

// InitSpline initializes a non-cyclic spline.
func (s *Spline[L]) InitSpline(controls []mgl32.Vec3, mode EvaluationMode) {
	s.mode = mode
	s.cyclic = false
	s.init(controls, false, 0)
}

// InitCyclicSpline initializes a spline whose last point connects back to
// controls[cyclicPoint].
func (s *Spline[L]) InitCyclicSpline(controls []mgl32.Vec3, mode EvaluationMode, cyclicPoint int) {
	s.mode = mode
	s.cyclic = true
	s.init(controls, true, cyclicPoint)
}

func (s *Spline[L]) init(controls []mgl32.Vec3, cyclic bool, cyclicPoint int) {
	switch s.mode {
	case ModeLinear:
		s.initLinear(controls, cyclic, cyclicPoint)
	case ModeCatmullRom:
		s.initCatmullRom(controls, cyclic, cyclicPoint)
	case ModeBezier3:
		s.initBezier3(controls)
	default:
		panic("movement: spline initialized with uninitialized mode")
	}
	s.lengths = nil
}

func (s *Spline[L]) initLinear(controls []mgl32.Vec3, cyclic bool, cyclicPoint int) {
	count := len(controls)
	if count < 2 {
		panic(fmt.Sprintf("movement: linear spline needs at least 2 points, got %d", count))
	}
	s.points = make([]mgl32.Vec3, count+1)
	copy(s.points, controls)
	if cyclic {
		s.points[count] = controls[cyclicPoint]
	} else {
		s.points[count] = controls[count-1]
	}
	s.indexLo = 0
	if cyclic {
		s.indexHi = count
	} else {
		s.indexHi = count - 1
	}
}

func (s *Spline[L]) initCatmullRom(controls []mgl32.Vec3, cyclic bool, cyclicPoint int) {
	count := len(controls)
	if count < 2 {
		panic(fmt.Sprintf("movement: catmullrom spline needs at least 2 points, got %d", count))
	}
	realSize := count + 2
	if cyclic {
		realSize = count + 3
	}
	s.points = make([]mgl32.Vec3, realSize)
	lo := 1
	hi := lo + count - 1
	copy(s.points[lo:], controls)

	// virtual points before the first and after the last control point
	if cyclic {
		if cyclicPoint == 0 {
			s.points[0] = controls[count-1]
		} else {
			s.points[0] = lerp(controls[0], controls[1], -1)
		}
		s.points[hi+1] = controls[cyclicPoint]
		s.points[hi+2] = controls[(cyclicPoint+1)%count]
	} else {
		s.points[0] = lerp(controls[0], controls[1], -1)
		s.points[hi+1] = controls[count-1]
	}

	s.indexLo = lo
	s.indexHi = hi
	if cyclic {
		s.indexHi = hi + 1
	}
}

func (s *Spline[L]) initBezier3(controls []mgl32.Vec3) {
	c := len(controls) / 3 * 3
	if c < 6 {
		panic(fmt.Sprintf("movement: bezier3 spline needs at least 6 points, got %d", len(controls)))
	}
	s.points = make([]mgl32.Vec3, c)
	copy(s.points, controls[:c])
	s.indexLo = 0
	s.indexHi = c/3 - 1
}

// Clear returns the spline to the empty state.
func (s *Spline[L]) Clear() {
	s.indexLo = 0
	s.indexHi = 0
	s.points = nil
	s.lengths = nil
}

// Empty reports whether the spline has no segments.
func (s *Spline[L]) Empty() bool { return s.indexLo == s.indexHi }

// First is the lowest valid segment index.
func (s *Spline[L]) First() int { return s.indexLo }

// Last is one past the highest valid segment index.
func (s *Spline[L]) Last() int { return s.indexHi }

// Mode returns the evaluation mode.
func (s *Spline[L]) Mode() EvaluationMode { return s.mode }

// IsCyclic reports whether the spline wraps around.
func (s *Spline[L]) IsCyclic() bool { return s.cyclic }

// Points returns the internal point array, virtual points included.
func (s *Spline[L]) Points() []mgl32.Vec3 { return s.points }

// PointCount returns len(Points()).
func (s *Spline[L]) PointCount() int { return len(s.points) }

// Point returns the i-th internal point.
func (s *Spline[L]) Point(i int) mgl32.Vec3 { return s.points[i] }

func (s *Spline[L]) checkIndex(index int) {
	if s.Empty() {
		panic("movement: spline used before initialization")
	}
	if index < s.indexLo || index >= s.indexHi {
		panic(fmt.Sprintf("movement: spline segment %d out of [%d, %d)", index, s.indexLo, s.indexHi))
	}
}

// EvaluatePercentAt returns the position at fraction u of segment index.
func (s *Spline[L]) EvaluatePercentAt(index int, u float32) mgl32.Vec3 {
	s.checkIndex(index)
	switch s.mode {
	case ModeLinear:
		if u <= 0 {
			return s.points[index]
		}
		if u >= 1 {
			return s.points[index+1]
		}
		return s.points[index].Add(s.points[index+1].Sub(s.points[index]).Mul(u))
	case ModeCatmullRom:
		return cEvaluate(s.points[index-1:index+3], u, &catmullRomCoeffs)
	case ModeBezier3:
		i := index * 3
		return cEvaluate(s.points[i:i+4], u, &bezier3Coeffs)
	}
	panic("movement: spline used before initialization")
}

// EvaluateDerivativeAt returns the derivative at fraction u of segment index.
func (s *Spline[L]) EvaluateDerivativeAt(index int, u float32) mgl32.Vec3 {
	s.checkIndex(index)
	switch s.mode {
	case ModeLinear:
		return s.points[index+1].Sub(s.points[index])
	case ModeCatmullRom:
		return cEvaluateDerivative(s.points[index-1:index+3], u, &catmullRomCoeffs)
	case ModeBezier3:
		i := index * 3
		return cEvaluateDerivative(s.points[i:i+4], u, &bezier3Coeffs)
	}
	panic("movement: spline used before initialization")
}

// SegLength returns the geometric length of segment [i, i+1].
func (s *Spline[L]) SegLength(i int) float32 {
	s.checkIndex(i)
	switch s.mode {
	case ModeLinear:
		return s.points[i].Sub(s.points[i+1]).Len()
	case ModeCatmullRom:
		return s.sampledLength(s.points[i-1:i+3], &catmullRomCoeffs, s.points[i])
	case ModeBezier3:
		p := s.points[i*3 : i*3+4]
		return s.sampledLength(p, &bezier3Coeffs, p[0])
	}
	panic("movement: spline used before initialization")
}

func (s *Spline[L]) sampledLength(p []mgl32.Vec3, m *[4][4]float32, start mgl32.Vec3) float32 {
	cur := start
	var length float64
	for i := 1; i <= stepsPerSegment; i++ {
		next := cEvaluate(p, float32(i)/float32(stepsPerSegment), m)
		length += float64(next.Sub(cur).Len())
		cur = next
	}
	return float32(length)
}

// InitLengths fills the length table with cumulative SegLength values.
func (s *Spline[L]) InitLengths() {
	var total float64
	s.InitLengthsWith(func(sp *Spline[L], i int) L {
		total += float64(sp.SegLength(i))
		return L(total)
	})
}

// InitLengthsWith fills the length table from cacher, called once per
// segment in order. Values must not decrease; a negative value is treated
// as overflow and clamped to the maximum length.
func (s *Spline[L]) InitLengthsWith(cacher func(s *Spline[L], i int) L) {
	if s.Empty() {
		panic("movement: spline used before initialization")
	}
	s.lengths = make([]L, s.indexHi+1)
	var prev L
	for i := s.indexLo; i < s.indexHi; i++ {
		l := cacher(s, i)
		if l < 0 {
			l = maxLength[L]()
		}
		if l < prev {
			panic(fmt.Sprintf("movement: spline length decreased at segment %d", i))
		}
		s.lengths[i+1] = l
		prev = l
	}
}

func maxLength[L Length]() L {
	var zero L
	if _, ok := any(zero).(int32); ok {
		v := int32(math.MaxInt32)
		return L(v)
	}
	v := float32(math.MaxFloat32)
	return L(v)
}

// Length returns the length of the whole spline.
func (s *Spline[L]) Length() L { return s.lengths[s.indexHi] }

// LengthAt returns the cumulative length up to point idx.
func (s *Spline[L]) LengthAt(idx int) L { return s.lengths[idx] }

// LengthBetween returns the length between points first and last.
func (s *Spline[L]) LengthBetween(first, last int) L {
	return s.lengths[last] - s.lengths[first]
}

// SetLength overrides the cumulative length at point i.
func (s *Spline[L]) SetLength(i int, l L) { s.lengths[i] = l }

// ComputeIndex maps t in [0,1] of the total length to a segment index and
// a fraction of that segment.
func (s *Spline[L]) ComputeIndex(t float32) (int, float32) {
	if t < 0 || t > 1 {
		panic(fmt.Sprintf("movement: spline percent %f out of [0, 1]", t))
	}
	length := L(t * float32(s.Length()))
	index := s.computeIndexInBounds(length)
	seg := s.LengthBetween(index, index+1)
	if seg == 0 {
		return index, 0
	}
	u := float32(length-s.lengths[index]) / float32(seg)
	return index, min(max(u, 0), 1)
}

// computeIndexInBounds finds the segment containing length by binary
// search over the cumulative table.
func (s *Spline[L]) computeIndexInBounds(length L) int {
	lo, hi := s.indexLo+1, s.indexHi
	j := lo + sort.Search(hi-lo, func(k int) bool {
		return s.lengths[lo+k] >= length
	})
	return max(j-1, s.indexLo)
}

// EvaluatePercent returns the position at fraction t of the total length.
func (s *Spline[L]) EvaluatePercent(t float32) mgl32.Vec3 {
	index, u := s.ComputeIndex(t)
	return s.EvaluatePercentAt(index, u)
}

// EvaluateDerivative returns the derivative at fraction t of the total length.
func (s *Spline[L]) EvaluateDerivative(t float32) mgl32.Vec3 {
	index, u := s.ComputeIndex(t)
	return s.EvaluateDerivativeAt(index, u)
}

func (s *Spline[L]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\n", s.mode)
	fmt.Fprintf(&b, "points count: %d\n", len(s.points))
	for i, p := range s.points {
		fmt.Fprintf(&b, "p%d: %v\n", i, p)
	}
	return b.String()
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
