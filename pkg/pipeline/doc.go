// Package pipeline provides a strictly ordered executor for staged jobs and lifecycle hooks.
//
// A caller creates a Pipeline, declares its entry function and the ordered list of stages, then
// registers jobs and hooks. Jobs and the before-each/after-each hooks are attached to one stage or
// to every stage; before-all and after-all hooks run once per run. Run executes everything in a
// single pass: the entry function, the before-all hooks, then for each stage and each of its jobs
// the before-each hooks, the job and the after-each hooks, and finally the after-all hooks.
//
// Every job works on its own deep copy of the stage baseline, the environment produced by the
// entry function and the before-all hooks. The before-each hooks, the job and the after-each hooks
// share that copy, and whatever they change in it is dropped once the job is done: sibling jobs
// never see each other's changes.
//
// The pipeline stops on the first error returned by any unit and returns it to the caller wrapped
// in a UnitError. There are no retries and nothing runs concurrently.
//
// Observers such as loggers, tracers, metrics or graph drawers implement model.PipelineOption
// and are notified of the run, stage and unit lifecycle. They cannot alter the outcome of a run.
package pipeline
