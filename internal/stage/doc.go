// Package stage defines the contract between the scheduler and the pipeline
// stage implementations.
package stage
