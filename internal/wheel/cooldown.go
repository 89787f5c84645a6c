package wheel

import "time"

// DefaultCooldown is the minimum time between spins that start a cooldown.
const DefaultCooldown = 20 * time.Minute

// CanSpin reports whether a spin is allowed at nowMs given the last
// cooldown-starting spin at lastMs (epoch milliseconds, 0 for none).
// Reaching the cooldown exactly is allowed. remainingMs is 0 when allowed.
func CanSpin(lastMs, nowMs int64, cooldown time.Duration) (ok bool, remainingMs int64) {
	if lastMs <= 0 {
		return true, 0
	}
	elapsed := nowMs - lastMs
	window := cooldown.Milliseconds()
	if elapsed >= window {
		return true, 0
	}
	return false, window - elapsed
}
