package fsx

import "bytes"

// memReader wraps a bytes.Reader to satisfy io.ReadCloser.
type memReader struct {
	*bytes.Reader
}

func (memReader) Close() error { return nil }

// memWriter accumulates written bytes into its backing entry's data on
// every write, so a reader opened before Close sees whatever has been
// written so far; each Open reads a snapshot of the data as it was at
// that moment and does not see later writes (close is a no-op: the
// entry is already live in the map).
type memWriter struct {
	fs    *MemFS
	path  string
	entry *memEntry
}

func (w *memWriter) Write(p []byte) (int, error) {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.entry.data = append(w.entry.data, p...)
	return len(p), nil
}

func (w *memWriter) Close() error { return nil }

// memTempFile is the TempFile returned by MemFS.CreateTemp.
type memTempFile struct {
	memWriter
	name string
}

func (t *memTempFile) Name() string { return t.name }
