// Package physics provides the built-in dynamical systems.
//
// Each system implements [dynamo.System] and reads its parameters from the
// [dynamo.Params] vector in the order of the definition's ParameterNames:
//
//   - [Lorenz]: butterfly attractor
//   - [Rossler]: spiral attractor
//   - [VanDerPol]: relaxation oscillator
//   - [Duffing]: forced nonlinear oscillator
//   - [DoubleWell]: bistable potential
//   - [Pendulum]: driven damped pendulum on the cylinder
//   - [CoupledPendulums]: two spring-coupled pendulums
//   - [ParallelPLL]: coupled phase-locked loops on the torus
//   - [Diploma]: circuit with a polynomial characteristic
//
// Systems with angle variables declare them in the definition's periodic
// data; [Registry.Get] then attaches a crossing event per angle so that
// trajectories split where the angle leaves its window.
//
//	def, err := physics.Default.Get("pendulum")
package physics
