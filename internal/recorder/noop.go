package recorder

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordFit(_ *FitEvent) error      { return nil }
func (n *NoopRecorder) RecordScan(_ *ScanSnapshot) error { return nil }
func (n *NoopRecorder) Close() error                     { return nil }
