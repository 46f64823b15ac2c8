package movement

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPath() []mgl32.Vec3 {
	return []mgl32.Vec3{
		{0, 0, 0},
		{10, 0, 0},
		{10, 10, 2},
		{0, 20, 4},
		{-5, 25, 4},
	}
}

func assertVecNear(t *testing.T, want, got mgl32.Vec3, delta float64) {
	t.Helper()
	for i := range 3 {
		assert.InDelta(t, want[i], got[i], delta, "component %d of %v vs %v", i, got, want)
	}
}

func TestSplineEndpointExactness(t *testing.T) {
	tests := []struct {
		name   string
		mode   EvaluationMode
		cyclic bool
	}{
		{"linear", ModeLinear, false},
		{"linear cyclic", ModeLinear, true},
		{"catmullrom", ModeCatmullRom, false},
		{"catmullrom cyclic", ModeCatmullRom, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpline[float32]()
			if tt.cyclic {
				s.InitCyclicSpline(testPath(), tt.mode, 0)
			} else {
				s.InitSpline(testPath(), tt.mode)
			}
			s.InitLengths()

			first := s.Point(s.First())
			last := s.Point(s.Last())
			assert.Equal(t, testPath()[0], first)
			if tt.cyclic {
				assert.Equal(t, testPath()[0], last)
			} else {
				assert.Equal(t, testPath()[4], last)
			}

			assertVecNear(t, first, s.EvaluatePercent(0), 1e-5)
			assertVecNear(t, last, s.EvaluatePercent(1), 1e-5)
		})
	}
}

func TestSplineLengthsMonotonic(t *testing.T) {
	for _, mode := range []EvaluationMode{ModeLinear, ModeCatmullRom} {
		t.Run(mode.String(), func(t *testing.T) {
			s := NewSpline[float32]()
			s.InitSpline(testPath(), mode)
			s.InitLengths()

			for i := s.First(); i < s.Last(); i++ {
				assert.LessOrEqual(t, s.LengthAt(i), s.LengthAt(i+1), "segment %d", i)
			}
			assert.Greater(t, s.Length(), float32(0))
		})
	}
}

func TestSplineLinearLengthMatchesGeometry(t *testing.T) {
	s := NewSpline[float32]()
	s.InitSpline([]mgl32.Vec3{{0, 0, 0}, {3, 4, 0}, {3, 4, 10}}, ModeLinear)
	s.InitLengths()

	assert.InDelta(t, 15, s.Length(), 1e-5)
	assert.InDelta(t, 5, s.LengthAt(1), 1e-5)

	// halfway along the total length lies 2.5 units up the second segment
	assertVecNear(t, mgl32.Vec3{3, 4, 2.5}, s.EvaluatePercent(0.5), 1e-4)
	assertVecNear(t, mgl32.Vec3{0, 0, 10}, s.EvaluateDerivative(0.9), 1e-5)
}

func TestSplineComputeIndex(t *testing.T) {
	s := NewSpline[int32]()
	s.InitSpline([]mgl32.Vec3{{0, 0, 0}, {10, 0, 0}, {20, 0, 0}, {30, 0, 0}}, ModeLinear)
	s.InitLengths()
	require.Equal(t, int32(30), s.Length())

	tests := []struct {
		t       float32
		wantIdx int
		wantU   float32
	}{
		{0, 0, 0},
		{0.5, 1, 0.5},
		{1, 2, 1},
		{0.2, 0, 0.6},
	}
	for _, tt := range tests {
		idx, u := s.ComputeIndex(tt.t)
		assert.Equal(t, tt.wantIdx, idx, "t=%v", tt.t)
		assert.InDelta(t, tt.wantU, u, 1e-5, "t=%v", tt.t)
	}
}

func TestSplineCatmullRomPassesThroughControls(t *testing.T) {
	s := NewSpline[float32]()
	s.InitSpline(testPath(), ModeCatmullRom)
	s.InitLengths()

	for i, want := range testPath()[:len(testPath())-1] {
		assertVecNear(t, want, s.EvaluatePercentAt(s.First()+i, 0), 1e-5)
	}
}

func TestSplineUninitializedPanics(t *testing.T) {
	s := NewSpline[float32]()
	assert.True(t, s.Empty())
	assert.Panics(t, func() { s.EvaluatePercentAt(0, 0.5) })
	assert.Panics(t, func() { s.InitLengths() })
	assert.Panics(t, func() { s.InitSpline([]mgl32.Vec3{{1, 1, 1}}, ModeLinear) })
}

func TestSplineLengthOverflowClamps(t *testing.T) {
	s := NewSpline[int32]()
	s.InitSpline([]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}, ModeLinear)
	s.InitLengthsWith(func(_ *Spline[int32], i int) int32 {
		if i == 1 {
			return -1
		}
		return 10
	})
	assert.Equal(t, int32(10), s.LengthAt(1))
	assert.Equal(t, int32(2147483647), s.Length())
}

func TestSplineBezier3(t *testing.T) {
	s := NewSpline[float32]()
	s.InitSpline([]mgl32.Vec3{{0, 0, 0}, {1, 1, 0}, {2, 1, 0}, {3, 0, 0}, {4, -1, 0}, {5, -1, 0}}, ModeBezier3)
	s.InitLengths()

	assert.Equal(t, 0, s.First())
	assert.Equal(t, 1, s.Last())
	assertVecNear(t, mgl32.Vec3{0, 0, 0}, s.EvaluatePercentAt(0, 0), 1e-6)
	assertVecNear(t, mgl32.Vec3{3, 0, 0}, s.EvaluatePercentAt(0, 1), 1e-5)
}
