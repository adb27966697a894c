package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/oksasatya/wellness-auth/internal/application"
)

var errSaturated = errors.New("too many audit events in flight")

const (
	esIndexTimeout = 3 * time.Second
	// DefaultMaxInFlight caps concurrent index requests.
	DefaultMaxInFlight = 64
)

// ESAuditor indexes audit events into Elasticsearch. Indexing runs in the
// background and never fails the request that produced the event. When
// maxInFlight requests are already pending, further events are dropped.
type ESAuditor struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger

	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewESAuditor(es *elasticsearch.Client, index string, logger *logrus.Logger, maxInFlight int) *ESAuditor {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &ESAuditor{ES: es, Index: index, Logger: logger, sem: semaphore.NewWeighted(int64(maxInFlight))}
}

func (a *ESAuditor) Record(ctx context.Context, ev application.AuditEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		a.warn(err, ev.Action)
		return
	}
	if !a.sem.TryAcquire(1) {
		a.dropped.Add(1)
		a.warn(errSaturated, ev.Action)
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.sem.Release(1)
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), esIndexTimeout)
		defer cancel()
		if err := a.index(c, body); err != nil {
			a.warn(err, ev.Action)
		}
	}()
}

// Dropped is the number of events discarded because too many were pending.
func (a *ESAuditor) Dropped() int64 {
	return a.dropped.Load()
}

// Close waits for pending index requests until ctx ends.
func (a *ESAuditor) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *ESAuditor) index(ctx context.Context, body []byte) error {
	res, err := esapi.IndexRequest{Index: a.Index, Body: bytes.NewReader(body)}.Do(ctx, a.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index audit event: %s", res.Status())
	}
	return nil
}

func (a *ESAuditor) warn(err error, action string) {
	if a.Logger != nil {
		a.Logger.WithError(err).WithField("action", action).Warn("audit event not indexed")
	}
}
