package dp

// ProgressEvent is delivered to a ProgressSink while a scan runs.
type ProgressEvent struct {
	FilesScanned int64  `json:"files_scanned"`
	CurrentPath  string `json:"current_path"`
	TotalSize    uint64 `json:"total_size"`
}

// ProgressSink receives scan progress. Scanners call OnProgress at least once
// per visited entry, from the scanning goroutine; sinks that need a
// different cadence wrap themselves with Every.
type ProgressSink interface {
	OnProgress(ev ProgressEvent)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(ev ProgressEvent)

func (f ProgressFunc) OnProgress(ev ProgressEvent) { f(ev) }

// NopProgress discards all events.
type NopProgress struct{}

func (NopProgress) OnProgress(ProgressEvent) {}

// Every returns a sink that forwards only every nth event to next.
// n <= 1 forwards everything.
func Every(n int64, next ProgressSink) ProgressSink {
	if n <= 1 {
		return next
	}
	return &everySink{n: n, next: next}
}

type everySink struct {
	n    int64
	next ProgressSink
}

func (s *everySink) OnProgress(ev ProgressEvent) {
	if ev.FilesScanned%s.n == 0 {
		s.next.OnProgress(ev)
	}
}
