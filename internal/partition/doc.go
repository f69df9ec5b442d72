// Package partition decides, for every declaration of a resolved program,
// whether it runs on the server, on the client, or on both, and derives the
// RPC stub table for client code that calls into the server.
//
// The phase is a pipeline of small passes over an immutable program:
//
//	BuildGraph        reference edges between declarations
//	solve             placement closure from @server/@client/@shared seeds
//	DetectBoundaries  cross-placement edges, legal calls and violations
//	Validator         wire eligibility of boundary signatures
//	SynthesizeStubs   one stub per server declaration called from the client
//
// Run wires the passes together. Results never live on program.Decl; every
// pass keeps its facts in side tables keyed by program.DeclID.
package partition
