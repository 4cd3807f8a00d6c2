package dummy

import (
	"sync"
	"time"

	"benchq/pkg/sut"
)

const defaultPollInterval = 100 * time.Microsecond

type poolItem struct {
	done    sut.Completer
	samples []sut.QuerySample
}

// PoolSUT hands queries to a fixed set of workers through an intake queue.
// Idle workers poll the queue rather than block on it, which keeps the
// completions spread over several goroutines.
type PoolSUT struct {
	pollInterval time.Duration

	mu     sync.Mutex
	queue  []poolItem
	closed bool

	wg sync.WaitGroup
}

func NewPoolSUT(workers int) *PoolSUT {
	if workers <= 0 {
		workers = 1
	}
	p := &PoolSUT{pollInterval: defaultPollInterval}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *PoolSUT) Name() string { return "PoolSUT" }

func (p *PoolSUT) IssueQuery(done sut.Completer, samples []sut.QuerySample) {
	p.mu.Lock()
	p.queue = append(p.queue, poolItem{done: done, samples: samples})
	p.mu.Unlock()
}

func (p *PoolSUT) ReportLatencyResults([]time.Duration) {}

func (p *PoolSUT) take() (poolItem, bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return poolItem{}, false, p.closed
	}
	item := p.queue[0]
	p.queue[0] = poolItem{}
	p.queue = p.queue[1:]
	return item, true, false
}

func (p *PoolSUT) work() {
	defer p.wg.Done()
	for {
		item, ok, closed := p.take()
		if closed {
			return
		}
		if !ok {
			time.Sleep(p.pollInterval)
			continue
		}
		item.done.QuerySamplesComplete(respond(item.samples))
	}
}

// Close stops the workers once the queue is empty.
func (p *PoolSUT) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
