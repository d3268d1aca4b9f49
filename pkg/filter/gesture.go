package filter

// gestureState tracks rising-edge detection for the discrete gestures.
// Blinks must persist for a configurable number of consecutive frames
// before the edge fires, which rejects single-frame detector flicker
// without adding smoothing latency to a deliberate blink.
type gestureState struct {
	blinkLeftRun  int
	blinkRightRun int

	blinkLeftFired  bool
	blinkRightFired bool
	mouthOpenHeld   bool
}

// update consumes this tick's raw gesture levels and returns the edges.
func (g *gestureState) update(blinkLeft, blinkRight, mouthOpen bool, holdTicks int) (leftEdge, rightEdge, mouthEdge bool) {
	if holdTicks < 1 {
		holdTicks = 1
	}

	leftEdge = g.updateBlink(&g.blinkLeftRun, &g.blinkLeftFired, blinkLeft, holdTicks)
	rightEdge = g.updateBlink(&g.blinkRightRun, &g.blinkRightFired, blinkRight, holdTicks)

	if mouthOpen && !g.mouthOpenHeld {
		mouthEdge = true
	}
	g.mouthOpenHeld = mouthOpen

	return leftEdge, rightEdge, mouthEdge
}

func (g *gestureState) updateBlink(run *int, fired *bool, level bool, holdTicks int) bool {
	if !level {
		*run = 0
		*fired = false
		return false
	}

	*run++
	if *run >= holdTicks && !*fired {
		*fired = true
		return true
	}
	return false
}
