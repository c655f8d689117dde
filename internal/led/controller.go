// Package led drives a board LED as a tally light for the player: solid
// while playing, blinking while paused or stopped, off when closed.
package led

// Pattern is what an LED shows.
type Pattern string

// Patterns understood by every Controller.
const (
	PatternOff   Pattern = "off"
	PatternSolid Pattern = "solid"
	PatternBlink Pattern = "blink"
)

// Controller abstracts LED hardware across boards.
type Controller interface {
	// Set shows pattern on the LED with the given board-independent role,
	// such as "tally".
	Set(role string, pattern Pattern) error

	// Available returns the roles this controller can drive.
	Available() []string
}
