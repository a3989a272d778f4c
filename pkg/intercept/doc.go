// Package intercept wraps named host operations with policy chains.
//
// # Installing
//
// An Engine installs one wrapper per policy.Descriptor on a Host. The
// wrapper replaces the operation in place, so the host keeps calling it
// under its usual name:
//
//	engine := intercept.New(intercept.WithSink(sink))
//	host, _ := intercept.NewStructHost(project)
//	if err := engine.Install(host, descriptor); err != nil {
//	    var setup *intercept.SetupError
//	    ...
//	}
//
// Install fails with TargetNotFoundError when the host lacks the operation
// and with AlreadyInstalledError when it is already wrapped. Uninstall puts
// the original back.
//
// # Invocation
//
// Every call runs the descriptor's steps in order:
//
//   - Allow continues with the next step
//   - Deny suppresses the call, logs a warning and notifies the user
//   - Suspend asks the sink for confirmation; yes continues, no suppresses
//     the call with UserCancelledError and no notification
//
// When every step allows, the original is called exactly once with the
// unmodified arguments and its value and error are returned unchanged. A
// suppressed call returns the descriptor's denial value (nil or false) and a
// nil error, or the cause when the engine was built WithDenialErrors.
//
// Invoke runs the same path and returns the full Outcome. Go runs it on a new
// goroutine and returns a Future.
//
// # Concurrency
//
// Wrappers may be called from many goroutines. A wrapper whose descriptor
// Suspends blocks its caller until the sink answers or the context ends; an
// ended context denies the call.
package intercept
