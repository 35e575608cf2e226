package server

// shouldTriggerTwist decides whether the chaos agent should fire next,
// given how many player and ai contributions the story holds. The delta is
// the number of player contributions since the last ai one: never trigger
// at 0 or 1, trigger with probability 0.7 at 2, always trigger at 3+.
// roll supplies the randomness so callers can pin it in tests.
func shouldTriggerTwist(playerCount, aiCount int, roll func() float64) bool {
	delta := playerCount - aiCount
	switch {
	case delta <= 0:
		return false
	case delta >= 3:
		return true
	case delta == 2:
		return roll() < 0.7
	default:
		return false
	}
}
