// Package workerpool runs jobs on a fixed set of worker goroutines.
//
// A Pool owns an unbounded FIFO queue and N workers. Each worker pulls one job
// at a time, runs it to completion and goes back for the next one. Execute
// never blocks beyond queue insertion.
//
// # Shutdown
//
// Close stops intake and joins every worker. Jobs already accepted into the
// queue still run before Close returns, so no accepted job is ever dropped and
// no worker goroutine outlives the pool.
//
// # Panics
//
// A panicking job is recovered inside its worker, logged with its stack and
// counted in Stats. The worker keeps serving the queue.
//
// # Example Usage
//
//	pool, err := workerpool.New(4)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	pool.Execute(func() {
//	    handle(conn)
//	})
package workerpool
