// Package types defines the run registry entities, metrics model,
// configuration, and standard errors shared by the roofmat CLI and its
// storage backend.
package types
