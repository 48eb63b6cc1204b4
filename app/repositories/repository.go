package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("record not found")
)

const (
	// maxTxnRetries bounds how often a transaction is replayed after an
	// optimistic conflict with a concurrent writer.
	maxTxnRetries = 8

	seqBandwidth = 100
)

// Options configures how the Badger database is opened.
type Options struct {
	Path       string
	InMemory   bool
	SyncWrites bool
}

// OpenDB opens (or creates) the Badger database described by opts.
func OpenDB(opts Options, logger *zap.Logger) (*badger.DB, error) {
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(newBadgerLogger(logger)).
		WithSyncWrites(opts.SyncWrites).
		WithNumVersionsToKeep(1)
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	} else if opts.Path == "" {
		return nil, errors.New("storage path is required unless running in memory")
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Path, err)
	}
	return db, nil
}

// Store is the Badger-backed resource store for posts, comments and flags.
// Every mutation, cascades included, is a single transaction.
type Store struct {
	db         *badger.DB
	postSeq    *badger.Sequence
	commentSeq *badger.Sequence
	flagSeq    *badger.Sequence
	logger     *zap.Logger
}

// NewStore wraps an open database. The caller keeps ownership of db; Close
// only releases the id sequences.
func NewStore(db *badger.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{db: db, logger: logger.Named("store")}

	var err error
	if s.postSeq, err = db.GetSequence([]byte(PostSeqKey), seqBandwidth); err != nil {
		return nil, fmt.Errorf("post sequence: %w", err)
	}
	if s.commentSeq, err = db.GetSequence([]byte(CommentSeqKey), seqBandwidth); err != nil {
		s.postSeq.Release()
		return nil, fmt.Errorf("comment sequence: %w", err)
	}
	if s.flagSeq, err = db.GetSequence([]byte(FlagSeqKey), seqBandwidth); err != nil {
		s.postSeq.Release()
		s.commentSeq.Release()
		return nil, fmt.Errorf("flag sequence: %w", err)
	}
	return s, nil
}

// Close releases leased ids back to the database.
func (s *Store) Close() error {
	return errors.Join(s.postSeq.Release(), s.commentSeq.Release(), s.flagSeq.Release())
}

// nextID returns the next id from seq. Ids start at 1.
func nextID(seq *badger.Sequence) (uint64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	return n + 1, nil
}

// update runs fn in a read-write transaction, replaying it when Badger
// reports a conflict. fn must not keep state between attempts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if errors.Is(err, badger.ErrConflict) && attempt < maxTxnRetries {
			s.logger.Debug("transaction conflict, retrying", zap.Int("attempt", attempt))
			continue
		}
		return err
	}
}

func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(fn)
}

// Clear drops every key. Used by maintenance commands and tests.
func (s *Store) Clear() error {
	return s.db.DropAll()
}
