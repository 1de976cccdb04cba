// Package ref provides a retirement queue: an unbounded notification queue
// onto which handles are pushed, once each, when the objects they track
// become unreachable.
//
// A Tracker watches objects with runtime.AddCleanup and retires their handles
// onto a Queue. Consumers take retired handles with Poll, Remove or
// RemoveTimeout, or hand the queue to a reaper.Reaper:
//
//	q := ref.NewQueue[string]()
//	tr := ref.NewTracker(q, log)
//	ref.Track(tr, conn, conn.Addr(), ref.KindPhantom)
//
//	h, err := q.Remove(ctx) // blocks until some tracked conn is collected
//
// The queue hands out the most recently retired handle first.
package ref
