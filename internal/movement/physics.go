package movement

import "math"

const (
	gravity                  = 19.29110527038574
	terminalVelocity         = 60.148003
	terminalSafeFallVelocity = 7.0

	terminalLength         = terminalVelocity * terminalVelocity / (2 * gravity)
	terminalSafeFallLength = terminalSafeFallVelocity * terminalSafeFallVelocity / (2 * gravity)
	terminalFallTime       = terminalVelocity / gravity
	terminalSafeFallTime   = terminalSafeFallVelocity / gravity
)

// ComputeFallTime returns the seconds needed to fall pathLength units.
func ComputeFallTime(pathLength float32, safeFall bool) float32 {
	if pathLength < 0 {
		return 0
	}
	l := float64(pathLength)
	if safeFall {
		if l >= terminalSafeFallLength {
			return float32((l-terminalSafeFallLength)/terminalSafeFallVelocity + terminalSafeFallTime)
		}
		return float32(math.Sqrt(2 * l / gravity))
	}
	if l >= terminalLength {
		return float32((l-terminalLength)/terminalVelocity + terminalFallTime)
	}
	return float32(math.Sqrt(2 * l / gravity))
}

// ComputeFallElevation returns the distance fallen after tPassed seconds
// starting at startVelocity.
func ComputeFallElevation(tPassed float32, safeFall bool, startVelocity float32) float32 {
	termVel := float32(terminalVelocity)
	termTime := float32(terminalFallTime)
	if safeFall {
		termVel = terminalSafeFallVelocity
		termTime = terminalSafeFallTime
	}
	startVelocity = min(startVelocity, termVel)

	// time left until terminal velocity is reached
	terminalTime := termTime - startVelocity/gravity
	if tPassed > terminalTime {
		return termVel*(tPassed-terminalTime) +
			startVelocity*terminalTime +
			gravity*terminalTime*terminalTime*0.5
	}
	return tPassed * (startVelocity + tPassed*gravity*0.5)
}

// MSToSec converts milliseconds to seconds.
func MSToSec(ms int32) float32 { return float32(ms) / 1000 }

// SecToMS converts seconds to milliseconds, truncating.
func SecToMS(sec float32) int32 { return int32(sec * 1000) }
