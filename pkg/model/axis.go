package model

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Axis identifies one of the control input channels of the overlay.
type Axis int

const (
	AxisBrake Axis = iota
	AxisThrottle
	AxisClutch
	AxisSteering
)

var ErrUnknownAxis = fmt.Errorf("unknown axis")

func (a Axis) String() string {
	switch a {
	case AxisBrake:
		return "BRAKE"
	case AxisThrottle:
		return "THROTTLE"
	case AxisClutch:
		return "CLUTCH"
	case AxisSteering:
		return "STEERING"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

func ParseAxis(arg string) (Axis, error) {
	for _, a := range KnownAxes() {
		if a.String() == arg {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownAxis, arg)
}

func KnownAxes() []Axis {
	return []Axis{AxisBrake, AxisThrottle, AxisClutch, AxisSteering}
}

// AxisValue is the per-axis payload. The shapes differ by axis and are part
// of the wire contract: pedals carry currentAngle, steering carries rotation.
// Consumers type-switch on the concrete type.
type AxisValue interface {
	axisValue()
}

type PedalValue struct {
	CurrentAngle float64 `json:"currentAngle"`
}

type SteeringValue struct {
	Rotation float64 `json:"rotation"`
}

func (PedalValue) axisValue()    {}
func (SteeringValue) axisValue() {}

// Component identifiers used by the dash template. These are the fixed keys
// under which the telemetry source nests the per-axis values inside a frame.
// Changing them breaks wire compatibility with the real source.
const (
	componentBrake    = "RSC - Input Display - Analog_Brake"
	componentThrottle = "RSC - Input Display - Analog_Throttle"
	componentClutch   = "RSC - Input Display - Analog_Clutch"
	componentSteering = "RSC - Input Display - Analog_Steering"
)

// static lookup table, compiled once; never derived at runtime
var axisPaths = map[Axis]jp.Expr{
	AxisBrake:    jp.MustParseString(fmt.Sprintf("$['%s']", componentBrake)),
	AxisThrottle: jp.MustParseString(fmt.Sprintf("$['%s']", componentThrottle)),
	AxisClutch:   jp.MustParseString(fmt.Sprintf("$['%s']", componentClutch)),
	AxisSteering: jp.MustParseString(fmt.Sprintf("$['%s']", componentSteering)),
}

// LookupAxisValue resolves the value for the given axis inside a parsed
// frame. The bool result is false when the frame carries no value for the
// axis or the value does not have the expected shape.
func LookupAxisValue(axis Axis, frame any) (AxisValue, bool) {
	path, ok := axisPaths[axis]
	if !ok {
		return nil, false
	}
	found := path.First(frame)
	if found == nil {
		return nil, false
	}
	attrs, ok := found.(map[string]any)
	if !ok {
		return nil, false
	}
	if axis == AxisSteering {
		rotation, ok := asFloat(attrs["rotation"])
		if !ok {
			return nil, false
		}
		return SteeringValue{Rotation: rotation}, true
	}
	angle, ok := asFloat(attrs["currentAngle"])
	if !ok {
		return nil, false
	}
	return PedalValue{CurrentAngle: angle}, true
}

// ojg delivers numbers as int64 or float64 depending on the literal
func asFloat(arg any) (float64, bool) {
	switch v := arg.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
