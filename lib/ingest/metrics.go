package ingest

type batchMetrics struct {
	inserted    int
	updated     int
	skipped     int
	tagFailures int
}

func (m *batchMetrics) total() int {
	return m.inserted + m.updated
}
