// Package lock serializes change applications. Two nested scopes: an
// in-process mutex covering the whole orchestrator call, and a cross-process
// advisory lock on a well-known file inside the change-log directory. The
// design trades per-path parallelism for a simple global-serialization
// argument: report-id derivation and mirror chaining are only safe when
// writes cannot interleave.
package lock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/selfgate-project/selfgate/pkg/errclass"
)

// LockFileName is the advisory lock file inside the change-log directory.
const LockFileName = "apply.lock"

// HolderInfo is written into the lock file on acquisition. Purely
// informational: the flock, not the content, is the lock.
type HolderInfo struct {
	PID         int       `json:"pid"`
	HolderNonce string    `json:"holder_nonce"`
	AcquiredAt  time.Time `json:"acquired_at"`
}

// PipelineLock guards the snapshot-through-persistence critical section.
type PipelineLock struct {
	dir string

	mu sync.Mutex
	f  *os.File // lazily opened, kept for the process lifetime
}

// New creates a lock rooted at the change-log directory.
func New(changeLogDir string) *PipelineLock {
	return &PipelineLock{dir: changeLogDir}
}

// AcquireProcess takes the in-process mutex. Callers pair it with a
// deferred ReleaseProcess so it is released on every exit path.
func (l *PipelineLock) AcquireProcess() {
	l.mu.Lock()
}

// ReleaseProcess releases the in-process mutex.
func (l *PipelineLock) ReleaseProcess() {
	l.mu.Unlock()
}

// AcquireFile takes the cross-process advisory lock, lazily creating the
// lock file. The caller must already hold the process lock. Failure is
// fatal to the request; there is no retry.
func (l *PipelineLock) AcquireFile() error {
	if l.f == nil {
		if err := os.MkdirAll(l.dir, 0o755); err != nil {
			return errclass.ErrLockUnavailable.WithMessagef("create change log dir: %v", err)
		}
		f, err := os.OpenFile(filepath.Join(l.dir, LockFileName), os.O_CREATE|os.O_RDWR, 0o640)
		if err != nil {
			return errclass.ErrLockUnavailable.WithMessagef("open lock file: %v", err)
		}
		l.f = f
	}
	if err := flockExclusive(l.f); err != nil {
		return errclass.ErrLockUnavailable.WithMessagef("flock: %v", err)
	}
	l.writeHolderInfo()
	return nil
}

// ReleaseFile drops the cross-process lock. The descriptor stays open for
// the next acquisition.
func (l *PipelineLock) ReleaseFile() {
	if l.f == nil {
		return
	}
	flockUnlock(l.f)
}

// Close releases the lock file descriptor.
func (l *PipelineLock) Close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// ReadHolderInfo reports the last recorded holder of the lock file in the
// given directory, or nil when the file is absent or unparseable. Doctor
// uses it to surface a stuck holder.
func ReadHolderInfo(changeLogDir string) *HolderInfo {
	data, err := os.ReadFile(filepath.Join(changeLogDir, LockFileName))
	if err != nil || len(data) == 0 {
		return nil
	}
	var info HolderInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

func (l *PipelineLock) writeHolderInfo() {
	info := HolderInfo{
		PID:         os.Getpid(),
		HolderNonce: uuid.NewString(),
		AcquiredAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(info)
	if err != nil {
		return
	}
	// Best effort: truncate and rewrite in place. The flock is the lock.
	if err := l.f.Truncate(0); err != nil {
		return
	}
	_, _ = l.f.WriteAt(data, 0)
}
