// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	dgbadger "github.com/dgraph-io/badger/v4"
)

const (
	// badgerKeyPrefix is the storage layout version for entry keys:
	// audit/v1/{escaped entity}/{sequence, zero padded}.
	badgerKeyPrefix = "audit/v1/"

	badgerSeqKey       = "audit/seq"
	badgerSeqBandwidth = 256
)

// BadgerLog stores entries in an in-memory BadgerDB.
//
// # Description
//
// Every append takes the next value of a DB-wide sequence, so keys for one
// entity sort in append order and a prefix scan returns them in that order.
// Values are JSON. Nothing is written to disk.
//
// # Thread Safety
//
// Safe for concurrent use. BadgerDB transactions are per-goroutine and the
// sequence hands out each value once.
type BadgerLog struct {
	db     *dgbadger.DB
	seq    *dgbadger.Sequence
	logger *slog.Logger
}

// OpenBadgerLog opens an in-memory BadgerDB and returns a log over it.
//
// # Inputs
//
//   - logger: Logger for diagnostics. May be nil.
//
// # Outputs
//
//   - *BadgerLog: Ready to use. Call Close when done.
//   - error: Non-nil if the DB or sequence cannot be opened.
func OpenBadgerLog(logger *slog.Logger) (*BadgerLog, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := dgbadger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := dgbadger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(badgerSeqKey), badgerSeqBandwidth)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open audit sequence: %w", err)
	}

	logger.Debug("audit: badger log opened", slog.Bool("in_memory", true))
	return &BadgerLog{db: db, seq: seq, logger: logger}, nil
}

// Close releases the sequence and closes the DB.
func (b *BadgerLog) Close() error {
	if err := b.seq.Release(); err != nil {
		b.logger.Warn("audit: sequence release failed", slog.String("error", err.Error()))
	}
	return b.db.Close()
}

// Append implements Log.
func (b *BadgerLog) Append(ctx context.Context, entity string, e Entry) (Entry, error) {
	if entity == "" {
		return Entry{}, ErrEmptyEntity
	}
	e = stamp(entity, e)

	raw, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encode audit entry: %w", err)
	}

	n, err := b.seq.Next()
	if err != nil {
		return Entry{}, fmt.Errorf("next audit sequence: %w", err)
	}

	key := entryKey(entity, n)
	err = b.withTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Set(key, raw)
	})
	if err != nil {
		return Entry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return e, nil
}

// Entries implements Log.
func (b *BadgerLog) Entries(ctx context.Context, entity string) ([]Entry, error) {
	prefix := entityPrefix(entity)
	out := make([]Entry, 0)

	err := b.withReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("copy value: %w", err)
			}
			var e Entry
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("decode audit entry %q: %w", it.Item().Key(), err)
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read audit entries: %w", err)
	}
	return out, nil
}

func (b *BadgerLog) withTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(fn)
}

func (b *BadgerLog) withReadTxn(ctx context.Context, fn func(txn *dgbadger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(fn)
}

func entityPrefix(entity string) []byte {
	return []byte(badgerKeyPrefix + url.PathEscape(entity) + "/")
}

func entryKey(entity string, n uint64) []byte {
	return fmt.Appendf(entityPrefix(entity), "%020d", n)
}
