package netsrv

import (
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const taskChanSize = 100

// WorkerFunction processes one queued task; it is re-invoked with a fresh
// task each time its worker goroutine picks one up.
type WorkerFunction = func(t *tomb.Tomb, task any) error

// WorkerPool is the tomb.v2-supervised fixed-size goroutine pool every
// accepted connection's next frame read is dispatched onto, adapted from
// the teacher's internal/worker.go WorkerPool (same fixed-pool-size,
// self-replenishing goroutine idiom, generalised to this package's
// connection-framing task instead of raw net.Conn hand-off).
type WorkerPool struct {
	n     int
	tasks chan any
	work  WorkerFunction
}

// NewWorkerPool allocates a pool with size worker slots.
func NewWorkerPool(size int) WorkerPool {
	return WorkerPool{
		tasks: make(chan any, taskChanSize),
		n:     size,
	}
}

// AddTask enqueues a unit of work (here, a *clientConn ready for its next
// frame) for the pool to pick up.
func (pool *WorkerPool) AddTask(task any) {
	pool.tasks <- task
}

// Setup keeps the pool topped up at its configured size until t dies.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	pool.work = work
	log.Info().Int("workers", pool.n).Msg("starting worker pool")
	active := 0
	for {
		select {
		case <-t.Dying():
			return
		default:
			if active < pool.n {
				t.Go(func() error {
					err := pool.worker(t)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (pool *WorkerPool) worker(t *tomb.Tomb) error {
	select {
	case <-t.Dying():
		return nil
	case task := <-pool.tasks:
		if err := pool.work(t, task); err != nil {
			log.Error().Err(err).Msg("worker task failed")
		}
	}
	return nil
}
