/*
Package rtd provides a small set of concurrency primitives for
multithreaded applications that want CSP-style coordination — bounded
channels with select, a lock-free ring buffer, timers and tickers, and
a fan-out/fan-in wait group — on top of goroutines and the standard
library's sync package.

The primitives are pure in-process synchronization constructs. They do
not perform I/O and do not know about the embedding application's own
goroutine-spawning conventions.
*/
package rtd
