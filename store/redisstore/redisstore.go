// Package redisstore persists accounts in Redis. Writes run as optimistic
// WATCH/MULTI transactions keyed on the account's version counter, so two
// concurrent writers cannot both commit against the same snapshot.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/bba-labs/authkit"
)

const defaultPrefix = "authkit"

// maxTxRetries bounds retries when the watched key changes mid-transaction.
const maxTxRetries = 4

// Store is a Redis-backed account store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a store writing under prefix. An empty prefix falls back to
// "authkit".
func New(client redis.UniversalClient, prefix string) *Store {
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultPrefix
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(email string) string {
	return s.prefix + ":acct:" + email
}

// Get loads and decodes the account for email.
func (s *Store) Get(ctx context.Context, email string) (*authkit.Account, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authkit.ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", authkit.ErrStoreUnavailable, err)
	}

	var account authkit.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("%w: corrupt account record: %v", authkit.ErrStoreUnavailable, err)
	}
	return &account, nil
}

// Put writes the account with compare-and-swap semantics on Version. Version
// zero creates the record or fails with ErrDuplicateEmail; otherwise the
// stored version must match or the write fails with ErrVersionConflict. On
// success account.Version is advanced in place.
func (s *Store) Put(ctx context.Context, account *authkit.Account) error {
	key := s.key(account.Email)

	for attempt := 0; attempt <= maxTxRetries; attempt++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				if account.Version != 0 {
					return authkit.ErrAccountNotFound
				}
			case err != nil:
				return fmt.Errorf("%w: %v", authkit.ErrStoreUnavailable, err)
			default:
				if account.Version == 0 {
					return authkit.ErrDuplicateEmail
				}
				var stored authkit.Account
				if err := json.Unmarshal(data, &stored); err != nil {
					return fmt.Errorf("%w: corrupt account record: %v", authkit.ErrStoreUnavailable, err)
				}
				if stored.Version != account.Version {
					return authkit.ErrVersionConflict
				}
			}

			next := *account
			next.Version++
			encoded, err := json.Marshal(&next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return err
		}

		account.Version++
		return nil
	}

	return authkit.ErrVersionConflict
}

// Exists reports whether an account record is stored for email.
func (s *Store) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.key(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", authkit.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}
