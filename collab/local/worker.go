package local

// Worker is a collab.DeferredWork backed by a single goroutine draining a
// depth-1 pending channel, mirroring a BIOS Swi: multiple Post calls that
// arrive before the function runs coalesce into one run, the same way
// Swi_post does not queue up repeated posts.
type Worker struct {
	fn      func()
	pending chan struct{}
	done    chan struct{}
}

// NewWorker starts a worker that runs fn each time it is posted.
func NewWorker(fn func()) *Worker {
	w := &Worker{
		fn:      fn,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker) loop() {
	for range w.pending {
		w.fn()
	}
	close(w.done)
}

// Post schedules fn to run. Safe to call from any goroutine, including
// one standing in for an ISR.
func (w *Worker) Post() {
	select {
	case w.pending <- struct{}{}:
	default:
	}
}

// Stop drains pending work and stops the worker goroutine.
func (w *Worker) Stop() {
	close(w.pending)
	<-w.done
}
