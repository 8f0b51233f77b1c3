// Package netconfig loads network definitions written in HCL and builds them
// into runnable networks of wire values.
//
// A definition is a set of node blocks. Each names an opcode from the
// registry, optional arguments and the upstream outputs feeding its inputs,
// in input port order:
//
//	node "n0" {
//	  op   = "constant"
//	  args = { value = 10 }
//	}
//
//	node "n1" {
//	  op     = "add"
//	  args   = { n = 5 }
//	  inputs = [n0.out[0]]
//	}
//
// A bare node name is shorthand for its first output.
package netconfig
