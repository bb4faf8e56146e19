// Package secd implements Landin's SECD machine as described in Henderson's
// "Functional Programming: Application and Implementation". It executes
// LispKit bytecode: control lists of integer opcodes and operands, built from
// the same S-expressions as the data they operate on.
//
// # Registers
//
// The machine has four registers, each an sexp.Value, conventionally a list:
//
//   - S, the stack of intermediate values
//   - E, the environment: a list of frames, each a list of values
//   - C, the control list: the code still to execute
//   - D, the dump: saved continuations for calls and conditionals
//
// Exec(program, args) starts with S = (args), E = NIL, C = program, D = NIL
// and runs until STOP. The result is the top of S.
//
// # Instructions
//
// There are 21 instructions, numbered 1 to 21 (see opcodes.go). Each reads
// its operands from the cells following the opcode and leaves C pointing
// after them, except for the control transfers (AP, RAP, RTN, SEL, JOIN)
// and STOP, which halts with C on the STOP cell.
//
// Calls do not recurse on the Go stack. AP and RAP push one dump entry, the
// list (S E C) of the caller; RTN pops it. SEL pushes the code following
// both branches; JOIN pops it. Interpreted recursion depth is bounded by
// memory, not by the Go call stack.
//
// # Recursive bindings
//
// DUM pushes a placeholder frame (NIL) onto E. Closures created afterwards
// with LDF capture the environment whose head is that placeholder. RAP then
// overwrites the placeholder's first component with the argument list,
// which contains those same closures, so every closure in the group sees
// itself and its siblings. This is the only instruction that mutates an
// existing pair and the reason environments are cyclic after a letrec.
//
// # Faults
//
// Ill-typed operands, zero divisors, empty stacks or dumps and undefined
// opcodes stop the machine with a *Fault. Faults unwrap to ErrType,
// ErrArithmetic, ErrUnderflow or ErrUnknownOpcode and carry a snapshot of
// the registers taken before the faulting instruction.
//
// # Tracing
//
// Setting Machine.Trace prints the opcode and all four registers before
// every instruction, in the textual syntax of package sexp. Cyclic
// environments print with "..." where a pair refers back to itself.
package secd
