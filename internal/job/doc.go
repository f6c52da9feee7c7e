// Package job runs one merge request end to end.
//
// The Orchestrator resolves both inputs into the upload directory, probes
// their durations, merges them into the output directory, probes the result,
// and removes the input temporaries. Stages advance linearly:
//
//	resolving_inputs -> probing_inputs -> merging -> probing_output -> cleaning_up -> done
//
// Any failure moves the job to failed, triggers best-effort removal of every
// file the job created, and returns the original error. The output file is
// kept on success; the retention sweeper deletes it later.
package job
