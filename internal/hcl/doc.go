// Package hcl is the HCL front end for graph definitions. It finds and
// parses .hcl files, decodes them against the schema package's structs and
// translates the result into the format-agnostic config model. It also owns
// the Converter, which evaluates argument expressions against the runtime
// evaluation context and populates the typed input structs of agent handlers.
package hcl
