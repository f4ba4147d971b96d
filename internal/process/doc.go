// Package process launches background jobs for the supervisor.
//
// A launched child runs in its own process group so terminal generated
// signals aimed at the supervisor do not reach it. The launcher never waits
// on the child: the reaper package owns reaping and is the only component that
// finalises a job. The os.Process handle is released right after the job is
// registered so no pidfd or wait state lingers in the runtime.
//
// Exec failures are reported synchronously by os/exec, which also collects the
// short-lived forked child, so a failed launch never registers a job and never
// leaves a zombie behind.
package process
