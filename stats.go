package reactor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats counts connection lifecycle events and records how long worker
// tasks take, in microseconds.
type Stats struct {
	accepted atomic.Int64
	active   atomic.Int64
	closed   atomic.Int64
	timedOut atomic.Int64
	rejected atomic.Int64
	bytesIn  atomic.Int64
	bytesOut atomic.Int64
	dropped  atomic.Int64

	mu  sync.Mutex
	hdr *hdrhistogram.Histogram
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Accepted int64
	Active   int64
	Closed   int64
	TimedOut int64
	Rejected int64
	BytesIn  int64
	BytesOut int64

	HooksDropped int64

	Tasks    int64
	TaskMean time.Duration
	TaskP50  time.Duration
	TaskP99  time.Duration
	TaskMax  time.Duration
}

func NewStats() *Stats {
	return &Stats{
		hdr: hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3),
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	var snap = StatsSnapshot{
		Accepted: s.accepted.Load(),
		Active:   s.active.Load(),
		Closed:   s.closed.Load(),
		TimedOut: s.timedOut.Load(),
		Rejected: s.rejected.Load(),
		BytesIn:  s.bytesIn.Load(),
		BytesOut: s.bytesOut.Load(),

		HooksDropped: s.dropped.Load(),
	}
	s.mu.Lock()
	snap.Tasks = s.hdr.TotalCount()
	snap.TaskMean = time.Duration(s.hdr.Mean()) * time.Microsecond
	snap.TaskP50 = time.Duration(s.hdr.ValueAtPercentile(50)) * time.Microsecond
	snap.TaskP99 = time.Duration(s.hdr.ValueAtPercentile(99)) * time.Microsecond
	snap.TaskMax = time.Duration(s.hdr.Max()) * time.Microsecond
	s.mu.Unlock()
	return snap
}

func (s *Stats) recordTask(d time.Duration) {
	var us = d.Microseconds()
	if us < 1 {
		us = 1
	}
	s.mu.Lock()
	_ = s.hdr.RecordValue(us)
	s.mu.Unlock()
}

func (s *Stats) connectionOpened() {
	s.accepted.Add(1)
	s.active.Add(1)
}

func (s *Stats) connectionClosed(reason CloseReason) {
	s.active.Add(-1)
	s.closed.Add(1)
	if reason == CloseTimeout {
		s.timedOut.Add(1)
	}
}

func (s *Stats) connectionRejected() {
	s.rejected.Add(1)
}

func (s *Stats) addBytesIn(n int) {
	s.bytesIn.Add(int64(n))
}

func (s *Stats) addBytesOut(n int) {
	s.bytesOut.Add(int64(n))
}

func (s *Stats) hookDropped() {
	s.dropped.Add(1)
}
