// Package config holds the format-agnostic model of a loaded research graph.
// The HCL front end translates parsed files into this model; the DAG builder
// and executor only ever see these types, never raw HCL schema structs.
package config
