// Package dynamo provides the simulation primitives shared by the LTI layer.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Linear]: systems that expose their (A, B) matrices for exact discretization
//   - [Integrator]: numerical stepper interface
//
// # Example
//
//	ss, _ := tf.StateSpace()
//	integ := integrators.NewRK4()
//	x := dynamo.State{0, 0}
//	x = integ.Step(ss, x, dynamo.Control{1}, 0, 1e-3)
//
// # Thread Safety
//
// Integrators keep scratch buffers and are NOT safe for concurrent use.
// Create one integrator per simulation run.
package dynamo
