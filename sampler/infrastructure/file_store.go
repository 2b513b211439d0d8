package infrastructure

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/samoilenko/sensorlog/sampler/domain"
)

// FileStore is the durable append-only record log. Every record reaches the file in its
// own Append and the file is synced once per drain. The file is opened lazily and
// reopened after a failed write.
type FileStore struct {
	logPath    domain.LogPath
	bufferSize domain.BufferSize
	logger     domain.Logger
	readyLock  sync.Mutex
	ready      bool
	wLock      sync.Mutex
	f          *os.File
	w          *bufio.Writer
}

// setReady manages the store's availability.
func (s *FileStore) setReady(val bool) {
	s.readyLock.Lock()
	defer s.readyLock.Unlock()
	s.ready = val
}

// IsReady reports whether the log file is open.
func (s *FileStore) IsReady() bool {
	s.readyLock.Lock()
	defer s.readyLock.Unlock()
	return s.ready
}

// Path returns the log location.
func (s *FileStore) Path() domain.LogPath {
	return s.logPath
}

// Reconnect closes the current file and opens it again.
func (s *FileStore) Reconnect(ctx context.Context) error {
	s.wLock.Lock()
	defer s.wLock.Unlock()
	s.closeLocked()
	return s.connectLocked(ctx)
}

// connectLocked opens the log and wraps it in a buffered writer. wLock must be held.
func (s *FileStore) connectLocked(_ context.Context) error {
	f, w, err := s.openBufferedFile(string(s.logPath), s.bufferSize)
	if err != nil {
		s.logger.Error("error on opening file: %s", err.Error())
		return fmt.Errorf("%w: %w", domain.ErrStoreNotReady, err)
	}
	s.f = f
	s.w = w
	s.setReady(true)
	return nil
}

// closeLocked flushes and closes the file. wLock must be held.
func (s *FileStore) closeLocked() {
	s.setReady(false)
	if s.w != nil {
		if err := s.w.Flush(); err != nil {
			s.logger.Error("error on flushing buffer: %s", err.Error())
		}
		s.w = nil
	}
	if s.f != nil {
		if err := s.f.Close(); err != nil {
			s.logger.Error("error on closing file: %s", err.Error())
		}
		s.f = nil
	}
}

// Append writes rec.Line followed by a newline to the file. A failed write loses only
// rec and drops the open file so that the next Append starts from a fresh handle.
func (s *FileStore) Append(ctx context.Context, rec domain.LogRecord) error {
	s.wLock.Lock()
	defer s.wLock.Unlock()

	if s.w == nil {
		if err := s.connectLocked(ctx); err != nil {
			return err
		}
	}
	if _, err := s.w.WriteString(rec.Line + "\n"); err != nil {
		s.discardLocked()
		return fmt.Errorf("append record: %w", err)
	}
	if err := s.w.Flush(); err != nil {
		s.discardLocked()
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// discardLocked drops buffered bytes of a failed record and closes the file. wLock must be held.
func (s *FileStore) discardLocked() {
	s.w.Reset(io.Discard)
	s.closeLocked()
}

// Flush syncs appended records to disk.
func (s *FileStore) Flush() error {
	s.wLock.Lock()
	defer s.wLock.Unlock()
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	if s.w == nil {
		return nil
	}
	if err := s.w.Flush(); err != nil {
		s.closeLocked()
		return fmt.Errorf("flush log: %w", err)
	}
	return s.f.Sync()
}

// Clear removes the log file. The next Append creates it again.
func (s *FileStore) Clear(_ context.Context) error {
	s.wLock.Lock()
	defer s.wLock.Unlock()

	s.closeLocked()
	if err := os.Remove(string(s.logPath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove log: %w", err)
	}
	return nil
}

// ReadLog returns up to maxBytes from the start of the log after syncing appended
// records. A missing log reads as empty.
func (s *FileStore) ReadLog(_ context.Context, maxBytes int64) ([]byte, error) {
	s.wLock.Lock()
	defer s.wLock.Unlock()

	if err := s.flushLocked(); err != nil {
		return nil, err
	}
	f, err := os.Open(string(s.logPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes)
	}
	return io.ReadAll(r)
}

// Close flushes remaining records and closes the file.
func (s *FileStore) Close() error {
	s.wLock.Lock()
	defer s.wLock.Unlock()
	s.closeLocked()
	return nil
}

// openBufferedFile opens name for appending, creating it if needed.
func (s *FileStore) openBufferedFile(name string, bufferSize domain.BufferSize) (*os.File, *bufio.Writer, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}
	return f, bufio.NewWriterSize(f, int(bufferSize)), nil
}

// NewFileStore creates a store for logPath. The file is opened on first use.
func NewFileStore(logPath domain.LogPath, bufferSize domain.BufferSize, logger domain.Logger) *FileStore {
	return &FileStore{
		logPath:    logPath,
		bufferSize: bufferSize,
		logger:     logger,
	}
}
