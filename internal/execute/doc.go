// Package execute runs transfer plans against a pair of stores.
//
// Copies stream concurrently under a bounded semaphore; deletes follow
// in S3-sized batches. Failures are recorded per object and the run
// keeps going, so one bad key never sinks a bulk transfer.
package execute
