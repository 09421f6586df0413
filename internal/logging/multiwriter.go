package logging

import "io"

// multiWriter fans a write out to every registered writer, matching the
// teacher's internal/log.MultiWriter. Unlike io.MultiWriter it does not
// abort on the first writer's error, so a broken file appender can't take
// down console logging.
type multiWriter struct {
	writers []io.Writer
}

func newMultiWriter() *multiWriter {
	return &multiWriter{}
}

func (m *multiWriter) add(w io.Writer) *multiWriter {
	m.writers = append(m.writers, w)
	return m
}

func (m *multiWriter) Write(p []byte) (int, error) {
	var firstErr error
	for _, w := range m.writers {
		if _, err := w.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}
