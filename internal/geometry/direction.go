package geometry

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidDirection = errors.New("invalid direction")

// Axis describes how the crop window moves along one axis.
type Axis int

const (
	AxisNone Axis = iota
	AxisIncreasing
	AxisDecreasing
)

func (a Axis) String() string {
	switch a {
	case AxisIncreasing:
		return "increasing"
	case AxisDecreasing:
		return "decreasing"
	default:
		return "none"
	}
}

// AxisMotion is the resolved window displacement for a scroll direction.
// The window moving towards larger x makes the content appear to move left.
type AxisMotion struct {
	H Axis
	V Axis
}

func (m AxisMotion) Diagonal() bool {
	return m.H != AxisNone && m.V != AxisNone
}

func (m AxisMotion) String() string {
	return fmt.Sprintf("h=%s,v=%s", m.H, m.V)
}

// Direction is one of the eight canonical scroll directions.
type Direction string

const (
	RightShift     Direction = "right-shift"
	LeftShift      Direction = "left-shift"
	DownShift      Direction = "down-shift"
	UpShift        Direction = "up-shift"
	UpRightShift   Direction = "up-right-shift"
	UpLeftShift    Direction = "up-left-shift"
	DownRightShift Direction = "down-right-shift"
	DownLeftShift  Direction = "down-left-shift"
)

// Directions lists the canonical directions in a stable order.
var Directions = []Direction{
	RightShift, LeftShift, DownShift, UpShift,
	UpRightShift, UpLeftShift, DownRightShift, DownLeftShift,
}

func (d Direction) Motion() AxisMotion {
	switch d {
	case RightShift:
		return AxisMotion{H: AxisDecreasing}
	case LeftShift:
		return AxisMotion{H: AxisIncreasing}
	case DownShift:
		return AxisMotion{V: AxisDecreasing}
	case UpShift:
		return AxisMotion{V: AxisIncreasing}
	case UpRightShift:
		return AxisMotion{H: AxisDecreasing, V: AxisIncreasing}
	case UpLeftShift:
		return AxisMotion{H: AxisIncreasing, V: AxisIncreasing}
	case DownRightShift:
		return AxisMotion{H: AxisDecreasing, V: AxisDecreasing}
	case DownLeftShift:
		return AxisMotion{H: AxisIncreasing, V: AxisDecreasing}
	}
	return AxisMotion{}
}

// ParseDirection accepts a canonical name or its abbreviation (r, l, d, u,
// ur, ul, dr, dl), ignoring case and surrounding spaces.
func ParseDirection(token string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case string(RightShift), "r":
		return RightShift, nil
	case string(LeftShift), "l":
		return LeftShift, nil
	case string(DownShift), "d":
		return DownShift, nil
	case string(UpShift), "u":
		return UpShift, nil
	case string(UpRightShift), "ur":
		return UpRightShift, nil
	case string(UpLeftShift), "ul":
		return UpLeftShift, nil
	case string(DownRightShift), "dr":
		return DownRightShift, nil
	case string(DownLeftShift), "dl":
		return DownLeftShift, nil
	default:
		return "", fmt.Errorf("%w %q (expected one of %s)", ErrInvalidDirection, token, directionList())
	}
}

// Resolve maps a user token straight to its AxisMotion.
func Resolve(token string) (AxisMotion, error) {
	d, err := ParseDirection(token)
	if err != nil {
		return AxisMotion{}, err
	}
	return d.Motion(), nil
}

func directionList() string {
	names := make([]string, len(Directions))
	for i, d := range Directions {
		names[i] = string(d)
	}
	return strings.Join(names, "|")
}
