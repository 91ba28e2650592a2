/*
Package whidl compiles and simulates a small structural hardware description
language: chips built hierarchically from a NAND primitive and a DFF
primitive, with generics, for-generate loops, sub-bus slicing and direct wire
assignments.

The pipeline is text -> Scanner -> Parser -> ChipAST -> Elaborator (width
inference + signal map) -> elaborated Chip -> Simulator. Elaboration builds a
directed multigraph of bit-level wires between instantiated sub-chips;
simulation drives values through that graph in strongly-connected-component
topological order, caching pure combinational results and deferring DFF
commits to Tick.

Sub-packages: builtins bundles a standard-cell HDL library (NOT, AND, MUX,
registers, RAM) served through an embedded HDLProvider. testscript parses the
nand2tetris-style .tst/.cmp file formats and drives a Chip through them.
cmd/whidl is a small demonstration binary, not a supported command-line
interface.
*/
package whidl
