package interp

import "sync"

// bgProc tracks one "cmd &" invocation running in its own goroutine. done
// is closed when the goroutine finishes; status holds its exit code at
// that point.
type bgProc struct {
	pid    int
	done   chan struct{}
	status int
}

// jobTable is the background-job bookkeeping shared by a Runner and every
// pipeline-stage fork made from it (see forkForStage), so a job started by
// one stage is still visible to, and reapable by, the original Runner.
type jobTable struct {
	mu      sync.Mutex
	jobs    []*bgProc
	lastPID int
}

func newJobTable() *jobTable { return &jobTable{} }

// spawn runs fn in a new goroutine, registers it under a synthetic pid
// (since bellos never forks a real OS process for its own statements), and
// records that pid as the new $!.
func (jt *jobTable) spawn(fn func() int) int {
	jt.mu.Lock()
	pid := len(jt.jobs) + jt.lastPID + 1
	proc := &bgProc{pid: pid, done: make(chan struct{})}
	jt.jobs = append(jt.jobs, proc)
	jt.lastPID = pid
	jt.mu.Unlock()

	go func() {
		status := fn()
		proc.status = status
		close(proc.done)
	}()
	return pid
}

func (jt *jobTable) lastBgPID() int {
	jt.mu.Lock()
	defer jt.mu.Unlock()
	return jt.lastPID
}

// reapFinished is the non-blocking reap_finished_jobs sweep: it checks each
// tracked job's done channel without blocking and drops the ones that have
// already finished, so the table never grows without bound across a long
// interactive session or script run.
func (jt *jobTable) reapFinished() {
	jt.mu.Lock()
	defer jt.mu.Unlock()
	remaining := jt.jobs[:0]
	for _, p := range jt.jobs {
		select {
		case <-p.done:
			// Finished: its status has already been recorded on p; drop it
			// from the table instead of keeping it around.
		default:
			remaining = append(remaining, p)
		}
	}
	jt.jobs = remaining
}

// spawnBg runs fn in a new background goroutine through the runner's job
// table and records its pid as $!.
func (r *Runner) spawnBg(fn func() int) {
	r.jobs.spawn(fn)
}

// ReapFinishedJobs performs the non-blocking background-job reap required
// before each interactive prompt and at interpreter exit. It is safe to
// call at any time, including when there are no background jobs.
func (r *Runner) ReapFinishedJobs() {
	r.jobs.reapFinished()
}
