// Package dynamo provides the shared primitives for exploring dynamical systems.
//
// The package defines the records exchanged between the solver, the
// trajectory pipeline and the presentation layers:
//
//   - [State]: vector representing system state
//   - [Params]: parameter vector passed to the right-hand side
//   - [System]: interface for ODE systems (dX/dt = f(X, p, t))
//   - [EventFunc]: zero-crossing function marking trajectory events
//   - [Solution]: raw solver output (samples plus per-event samples)
//   - [Definition]: a loaded dynamical system with names and periodic data
//
// # Example
//
//	def, _ := loader.Resolve("pendulum").Load()
//	sol, _ := integrators.NewSolver().Solve(ctx, def.System, def.DefaultParams,
//	    def.DefaultState, integrators.DefaultOptions(span), def.Events)
//
// # Thread Safety
//
// Systems loaded from scripts are NOT safe for concurrent use unless
// documented otherwise. Use one trajectory processor per goroutine.
package dynamo
