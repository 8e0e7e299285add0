// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

// Package storage persists podcast records and model artifacts in an
// embedded BadgerDB key-value store.
//
// All values are JSON-encoded. Transient transaction failures are retried
// with exponential backoff; tagged errors (not found, version conflict)
// are permanent and surface immediately.
package storage

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/podscale/podscale/internal/config"
	"github.com/podscale/podscale/internal/errs"
	"github.com/podscale/podscale/internal/logging"
	"github.com/podscale/podscale/internal/model"
)

// Key prefixes for BadgerDB storage.
const (
	podcastKeyPrefix = "podcast:"
	modelKeySuffix   = ":model"
)

// Store is the BadgerDB-backed persistence layer.
type Store struct {
	db           *badger.DB
	retries      uint64
	initialDelay time.Duration
}

// Open opens (or creates) the badger database at the configured path.
func Open(cfg config.StorageConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "open badger at %s", cfg.Path)
	}

	retries := uint64(0)
	if cfg.RetryAttempts > 1 {
		retries = uint64(cfg.RetryAttempts - 1)
	}
	delay := cfg.RetryInitialDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Store{db: db, retries: retries, initialDelay: delay}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PodcastKey returns the storage key for a podcast record.
func PodcastKey(id string) string {
	return podcastKeyPrefix + id
}

// ArtifactKey returns the storage key for a podcast's model artifact.
func ArtifactKey(id string) string {
	return podcastKeyPrefix + id + modelKeySuffix
}

// Put JSON-encodes v and writes it at key.
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.KindInternal, err, "marshal %s", key)
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Get reads the value at key into v. Missing keys are KindNotFound.
func (s *Store) Get(key string, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errs.NotFound("no value stored at %s", key)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if err != nil && errs.KindOf(err) == errs.KindInternal {
		return errs.Wrap(errs.KindStorage, err, "get %s", key)
	}
	return err
}

// Delete removes the value at key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	return s.update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// ListKeys returns every key with the given prefix, in key order.
func (s *Store) ListKeys(prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindStorage, err, "list %s", prefix)
	}
	return keys, nil
}

// GetArtifact loads and validates the stored model artifact for a podcast.
func (s *Store) GetArtifact(podcastID string) (*model.Artifact, error) {
	var art model.Artifact
	if err := s.Get(ArtifactKey(podcastID), &art); err != nil {
		return nil, err
	}
	if err := art.Validate(); err != nil {
		return nil, err
	}
	return &art, nil
}

// PutArtifact stores a model artifact with a compare-and-swap on its
// version: the artifact must carry the version the trainer read (zero for
// a first write). A concurrent retraining that committed in between makes
// the stored version differ and the write is rejected with KindConflict,
// so the earlier result never silently overwrites the later one. On
// success the stored version is the presented version plus one.
func (s *Store) PutArtifact(art *model.Artifact) error {
	if err := art.Validate(); err != nil {
		return err
	}
	key := []byte(ArtifactKey(art.PodcastID))

	return s.update(func(txn *badger.Txn) error {
		current := int64(0)
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// First write for this podcast.
		case err != nil:
			return err
		default:
			var stored model.Artifact
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stored)
			}); err != nil {
				return err
			}
			current = stored.Version
		}

		if art.Version != current {
			return errs.New(errs.KindConflict,
				"model for podcast %s is at version %d, write presented %d",
				art.PodcastID, current, art.Version)
		}

		next := *art
		next.Version = current + 1
		data, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		art.Version = next.Version
		return nil
	})
}

// update runs a read-write transaction with retries. Tagged errors are
// permanent; everything else is treated as transient and retried with the
// configured exponential backoff.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	op := func() error {
		err := s.db.Update(fn)
		if err == nil {
			return nil
		}
		var tagged *errs.Error
		if errors.As(err, &tagged) {
			return backoff.Permanent(err)
		}
		logging.Warn().Err(err).Msg("storage transaction failed, retrying")
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0

	err := backoff.Retry(op, backoff.WithMaxRetries(bo, s.retries))
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != errs.KindInternal {
		return err
	}
	return errs.Wrap(errs.KindStorage, err, "storage transaction exhausted retries")
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}
