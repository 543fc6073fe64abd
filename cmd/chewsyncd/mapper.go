package main

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// ============================================================================
// Parameter -> control line mapping
// ============================================================================
// The actuator takes one ASCII line of five comma-separated integers:
// up/hold/down control the actuation sequence timing (driven by chewiness),
// d5/d6 are the PWM duty pair (driven by firmness). Both tables are firmware
// calibration data; the values are load-bearing and must not be "cleaned up".
// ============================================================================

// ControlLine is the five-value actuator command.
type ControlLine struct {
	Up   int
	Hold int
	Down int
	D5   int
	D6   int
}

// String renders the line in the device's wire format, without the trailing
// newline (the transport appends it).
func (l ControlLine) String() string {
	return fmt.Sprintf("%d,%d,%d,%d,%d", l.Up, l.Hold, l.Down, l.D5, l.D6)
}

// chewinessToSeq maps chewiness 1..10 to (up, hold, down). Index 0 is unused.
var chewinessToSeq = [scaleMax + 1][3]int{
	1:  {15, 30, 10},
	2:  {30, 60, 20},
	3:  {50, 100, 33},
	4:  {60, 120, 40},
	5:  {75, 150, 50},
	6:  {88, 176, 59},
	7:  {107, 214, 71},
	8:  {120, 240, 80},
	9:  {136, 273, 91},
	10: {150, 300, 100},
}

// firmnessToDuty maps firmness 1..10 to (d5, d6). Index 0 is unused.
var firmnessToDuty = [scaleMax + 1][2]int{
	1:  {40, 42},
	2:  {40, 44},
	3:  {45, 46},
	4:  {50, 48},
	5:  {55, 50},
	6:  {60, 52},
	7:  {65, 54},
	8:  {70, 56},
	9:  {75, 58},
	10: {80, 60},
}

// mapParameters composes the control line. Inputs are clamped here as well,
// so a caller that skipped coercion still cannot index out of the tables.
func mapParameters(chewiness, firmness int) ControlLine {
	seq := chewinessToSeq[clampScale(chewiness)]
	duty := firmnessToDuty[clampScale(firmness)]
	return ControlLine{
		Up:   seq[0],
		Hold: seq[1],
		Down: seq[2],
		D5:   duty[0],
		D6:   duty[1],
	}
}

// clampScale forces v into [scaleMin, scaleMax].
func clampScale(v int) int {
	if v < scaleMin {
		return scaleMin
	}
	if v > scaleMax {
		return scaleMax
	}
	return v
}

// coerceScale turns whatever the parameter service sent into a usable 1..10
// value. Numbers (including floats and numeric strings) are truncated and
// clamped; anything else becomes the midpoint default. Malformed input is a
// degrade-and-continue case, never an error.
func coerceScale(r gjson.Result) int {
	switch r.Type {
	case gjson.Number:
		return clampScale(int(r.Int()))
	case gjson.String:
		if n, err := strconv.Atoi(r.Str); err == nil {
			return clampScale(n)
		}
		if f, err := strconv.ParseFloat(r.Str, 64); err == nil {
			return clampScale(int(f))
		}
		return scaleDefault
	case gjson.True:
		return clampScale(1)
	default:
		return scaleDefault
	}
}
