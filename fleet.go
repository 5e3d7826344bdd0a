// Package fleet holds shared metadata for the fleet binary.
package fleet

// Version is the fleet release version.
const Version = "0.3.0"
