// Package engine drives an external UCI chess engine over its stdin/stdout.
//
// ARCHITECTURE:
//
// Single-Writer Run Loop:
// One goroutine owns the child's pipes for the handle's lifetime. Callers
// never touch the pipes; they submit commands. This ensures:
// - The engine's output, which carries no request ids, is read by exactly
// one party
// - Command N finishes its protocol exchange before command N+1 is written
//
// Command Flow:
// 1. Engine.SetPosition/Start/Stop/GetEvaluation enqueue a uci.Command
// 2. run() dequeues commands one at a time in FIFO order
// 3. execute() writes the instruction and performs the bounded reads it needs
// 4. For "eval", the dump is read up to its terminator, parsed, and
// published into a rendezvous cell tagged with the request id
// 5. GetEvaluation wakes, checks the id, and returns the result
//
// When the queue is empty the loop parks in a select over the queue signal,
// a line channel fed by a reader goroutine, and cancellation. Output that
// arrives while idle (info and bestmove lines from a search) updates the
// Analysis snapshot.
//
// Lifecycle:
// New spawns the child and runs the handshake synchronously; failures are
// returned and the child is killed. Close drains the queue, sends "quit",
// and kills the child if it has not exited within the shutdown timeout.
// A pipe failure ends the run loop; later calls fail with ErrEngineStopped
// wrapping the cause.
package engine
