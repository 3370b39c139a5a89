// Package sweep drives repeated, parameterized runs of the backend.
//
// A sweep specification is declared in HCL: one or more sweep blocks, each
// with nested loop blocks. Loops expand as a cartesian product in declaration
// order (first loop outermost), producing one labeled step per combination.
// The driver applies each step's assignments to the experiment store, runs
// the backend synchronously through the lifecycle manager, then collects
// results before the next step is allowed to mutate anything. The store is a
// single shared resource read by the backend over the whole run, so that
// strict sequencing is the correctness barrier, not an optimization.
package sweep
