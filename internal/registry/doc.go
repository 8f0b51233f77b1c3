// Package registry provides the central "glue" for the module system.
//
// The Registry maps the opcodes used in network definition files (e.g.
// "add", "constant") to the Go factories that build operator instances, along
// with the argument schema each factory expects.
//
// During application startup every module registers its operators, and the
// registry is then validated so that a definition file can only ever refer to
// a known opcode with well-typed arguments.
package registry
