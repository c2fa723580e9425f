// Package control expresses feedback controllers as transfer functions so
// they compose with plants through the lti block algebra.
//
//   - [Proportional]: static gain
//   - [PID]: parallel PID with a first-order derivative filter
//
// # Usage
//
//	c := control.PID{Kp: 2, Ki: 1, N: 100}
//	closed, err := control.ClosedLoop(c, plant)
package control
