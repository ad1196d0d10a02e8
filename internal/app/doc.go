// Package app wires the application together: logger, module registry,
// graph loading, plan printing and execution.
package app
