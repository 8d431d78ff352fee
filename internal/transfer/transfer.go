// Package transfer implements the multipart upload, download, and copy
// orchestration.
//
// Every transfer runs in three phases: an initiation call retried as a unit,
// the parts themselves (each retried independently and run concurrently under
// the task pool), and a completion call retried as a unit. A failure in any
// phase aborts the multipart upload so no orphaned parts accumulate.
package transfer

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/s3tool/s3tool/internal/chunk"
	"github.com/s3tool/s3tool/internal/keystore"
	"github.com/s3tool/s3tool/internal/retry"
	"github.com/s3tool/s3tool/internal/s3api"
	"github.com/s3tool/s3tool/s3types"
)

// Default pool widths. HTTP requests are bounded separately from part
// workers so that many queued parts cannot starve the connection pool.
const (
	DefaultHTTPConcurrency = 10
	DefaultTaskConcurrency = 50
)

// Env carries the shared machinery every transfer needs: the S3 client seam,
// the retry policy, the key provider, and the two concurrency pools.
type Env struct {
	API        s3api.S3API
	Retry      *retry.Executor
	Keys       keystore.Provider
	ChunkSize  int64
	DefaultACL s3types.ObjectACL
	HTTPSem    chan struct{}
	TaskSem    chan struct{}
	Log        *logrus.Logger
}

// NewEnv fills in defaults for any zero fields and returns a ready Env.
func NewEnv(env Env) *Env {
	if env.Retry == nil {
		env.Retry = &retry.Executor{}
	}
	if env.ChunkSize <= 0 {
		env.ChunkSize = chunk.DefaultChunkSize
	}
	if env.DefaultACL == "" {
		env.DefaultACL = s3types.ACLOwnerFullControl
	}
	if env.HTTPSem == nil {
		env.HTTPSem = make(chan struct{}, DefaultHTTPConcurrency)
	}
	if env.TaskSem == nil {
		env.TaskSem = make(chan struct{}, DefaultTaskConcurrency)
	}
	if env.Log == nil {
		env.Log = logrus.New()
	}
	return &env
}

// acquireTask claims a worker slot from the task pool.
func (e *Env) acquireTask(ctx context.Context) error {
	select {
	case e.TaskSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Env) releaseTask() {
	<-e.TaskSem
}

// Call runs one SDK call under the HTTP pool.
func (e *Env) Call(ctx context.Context, fn func() error) error {
	select {
	case e.HTTPSem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.HTTPSem }()
	return fn()
}

// Drain blocks until no transfer holds a pool slot. Used during shutdown.
func (e *Env) Drain(ctx context.Context) error {
	for i := 0; i < cap(e.TaskSem); i++ {
		select {
		case e.TaskSem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for i := 0; i < cap(e.HTTPSem); i++ {
		select {
		case e.HTTPSem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for i := 0; i < cap(e.TaskSem); i++ {
		<-e.TaskSem
	}
	for i := 0; i < cap(e.HTTPSem); i++ {
		<-e.HTTPSem
	}
	return nil
}

// uri renders the canonical object URI used in log lines and error context.
func uri(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// progressCounter funnels concurrent per-part byte counts into a single
// ProgressTracker. A nil tracker makes every method a no-op.
type progressCounter struct {
	tracker s3types.ProgressTracker
	total   int64
	moved   atomic.Int64
}

func newProgressCounter(tracker s3types.ProgressTracker, total int64) *progressCounter {
	return &progressCounter{tracker: tracker, total: total}
}

func (p *progressCounter) add(n int64) {
	if p.tracker == nil {
		return
	}
	p.tracker.Update(p.moved.Add(n), p.total)
}

func (p *progressCounter) complete() {
	if p.tracker != nil {
		p.tracker.Complete()
	}
}

func (p *progressCounter) fail(err error) {
	if p.tracker != nil {
		p.tracker.Error(err)
	}
}

// partResult is the per-part outcome collected by the orchestrators.
type partResult struct {
	n    int32
	etag string
	err  error
}
