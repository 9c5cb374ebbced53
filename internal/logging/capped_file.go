package logging

import (
	"os"
	"sync"
)

const defaultLogCapMB = 10

// cappedFile appends log lines to one file and starts the file over
// when the next record would push it past the cap. There is no
// rotation chain; the file holds the most recent records only.
type cappedFile struct {
	mu    sync.Mutex
	path  string
	limit int64
	f     *os.File
	n     int64
}

func openCappedFile(path string, maxMB int) (*cappedFile, error) {
	if maxMB <= 0 {
		maxMB = defaultLogCapMB
	}
	w := &cappedFile{path: path, limit: int64(maxMB) << 20}
	if err := w.reopen(os.O_APPEND); err != nil {
		return nil, err
	}
	return w, nil
}

// reopen establishes the handle. With O_APPEND the bytes already in
// the file count against the cap; with O_TRUNC the count restarts.
func (w *cappedFile) reopen(flag int) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|flag, 0o644)
	if err != nil {
		return err
	}
	var size int64
	if flag&os.O_APPEND != 0 {
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return err
		}
		size = info.Size()
	}
	w.f, w.n = f, size
	return nil
}

func (w *cappedFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		if err := w.reopen(os.O_APPEND); err != nil {
			return 0, err
		}
	}
	if w.n > 0 && w.n+int64(len(p)) > w.limit {
		_ = w.f.Close()
		w.f = nil
		if err := w.reopen(os.O_TRUNC); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.n += int64(n)
	return n, err
}

func (w *cappedFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
