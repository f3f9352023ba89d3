package snack

import "fmt"

// A ControlCode is the discrete actuator command a dispense controller
// presents to its pulse generator. It travels on a code bus as a plain
// bus value.
type ControlCode uint16

// The three control codes.
const (
	CodeStop ControlCode = iota
	CodePush
	CodeRevert
)

func (c ControlCode) String() string {
	switch c {
	case CodeStop:
		return "stop"
	case CodePush:
		return "push"
	case CodeRevert:
		return "revert"
	}

	return fmt.Sprintf("code(%d)", uint16(c))
}
