// Package workerpool fans jobs out to a fixed number of goroutines and
// collects their results.
package workerpool

import (
	"runtime"
	"sync"
)

// DefaultWorkers is used when a pool is created with no worker count.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// Pool distributes jobs across workers and collects one result per job.
// Results arrive in completion order, not submission order.
type Pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a pool. A numWorkers of 0 or less means DefaultWorkers.
// numJobs sizes the queues so Submit never blocks for that many jobs, and
// caps the worker count.
func New[Job any, Result any](numWorkers, numJobs int) *Pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &Pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// Workers returns the number of workers Start launches.
func (p *Pool[Job, Result]) Workers() int {
	return p.numWorkers
}

// Start launches the workers. fn is called once per job.
func (p *Pool[Job, Result]) Start(fn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- fn(job)
			}
		}()
	}
}

// Submit queues a job.
func (p *Pool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting jobs. The results channel is closed once every
// queued job has finished.
func (p *Pool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the channel results are delivered on.
func (p *Pool[Job, Result]) Results() <-chan Result {
	return p.results
}
