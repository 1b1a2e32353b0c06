// Package jobqueue runs a bounded FIFO of pipeline jobs against a fixed
// worker pool, with separate semaphores capping how many of those workers
// may be transcoding or transcribing at once.
//
// It generalizes the lifecycle shape of a multi-lane disc-processing
// manager (Start/Stop/per-worker poll loop, graceful drain on cancel) down
// to this service's single stage-chain-per-job model; job stage sequencing
// itself lives in internal/pipeline.
package jobqueue
