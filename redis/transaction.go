package redis

import (
	"context"

	otrace "github.com/opentracing/opentracing-go"
)

// Transaction queues commands and applies them atomically with MULTI/EXEC
// on Commit. Until then nothing is sent, so leaving the scope without a
// Commit, by an early return or a panic, leaves no partial writes:
//
//	tx, err := users.CreateTransaction(ctx)
//	if err != nil { ... }
//	defer tx.Close()
//	tx.QueueStore(user)
//	tx.QueueIncrementValue("users", nil)
//	err = tx.Commit(ctx)
//
// A Transaction is not safe for concurrent use.
type Transaction[T any] struct {
	*CommandQueue[T]
	committed bool
}

// CreateTransaction returns an empty transaction. Server capabilities needed
// by queued commands are resolved here, never between MULTI and EXEC.
func (c *TypedClient[T]) CreateTransaction(ctx context.Context) (*Transaction[T], error) {
	q, err := newCommandQueue(ctx, c)
	if err != nil {
		return nil, err
	}
	return &Transaction[T]{CommandQueue: q}, nil
}

func (tx *Transaction[T]) Committed() bool {
	return tx.committed
}

// Commit sends the queue inside MULTI/EXEC and then invokes the callbacks in
// queue order. An EXEC aborted by a watched key returns
// ErrTransactionAborted.
func (tx *Transaction[T]) Commit(ctx context.Context) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.Transaction.Commit")
	defer span.Finish()

	if tx.closed {
		return ErrQueueClosed
	}
	if tx.committed {
		return ErrAlreadyCommitted
	}
	executed, err := tx.run(ctx, "Transaction.Commit")
	tx.committed = executed
	return err
}

// Replay executes the recorded queue again as a new MULTI/EXEC block. Only a
// committed transaction can be replayed.
func (tx *Transaction[T]) Replay(ctx context.Context) error {
	span, ctx := otrace.StartSpanFromContext(ctx, "redis.Transaction.Replay")
	defer span.Finish()

	if tx.closed {
		return ErrQueueClosed
	}
	if !tx.committed {
		return ErrNotCommitted
	}
	_, err := tx.run(ctx, "Transaction.Replay")
	return err
}

func (tx *Transaction[T]) run(ctx context.Context, name string) (bool, error) {
	native, err := tx.typed.client.Native()
	if err != nil {
		return false, err
	}
	log := tx.typed.Log().FromContext(ctx)
	defer log.Close()

	log.Debugf("%s: %d commands", name, len(tx.commands))
	return tx.execute(ctx, native.TxPipeline(), name)
}

// Rollback discards the queue. No MULTI has been sent before Commit so
// there is nothing to undo on the server.
func (tx *Transaction[T]) Rollback() error {
	if tx.committed {
		return ErrAlreadyCommitted
	}
	if tx.closed {
		return nil
	}
	if n := tx.discard(); n > 0 {
		tx.typed.Log().Debugf("Transaction.Rollback: discarded %d commands", n)
	}
	return nil
}

// Close rolls back a transaction that was not committed.
func (tx *Transaction[T]) Close() error {
	if tx.closed {
		return nil
	}
	if !tx.committed {
		return tx.Rollback()
	}
	tx.discard()
	return nil
}
