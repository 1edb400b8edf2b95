package memory

import (
	"context"
	"sync"

	appoutbox "xrent/internal/app/outbox"
)

// Outbox keeps events in memory until flushed. Flushed records are handed to
// Sink when one is set, otherwise dropped.
type Outbox struct {
	Sink func(ctx context.Context, records []appoutbox.EventRecord) error

	mu      sync.Mutex
	records []appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	pending := o.records
	o.records = nil
	o.mu.Unlock()
	if o.Sink == nil || len(pending) == 0 {
		return nil
	}
	return o.Sink(ctx, pending)
}

// Pending returns a copy of the records not yet flushed.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.records...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
