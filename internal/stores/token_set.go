package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/MrEthical07/goShield/store"
)

const (
	tokenSetVersionV1 = 1

	tokenFlagSingleUse = 1 << 0

	maxRetries = 4

	minRecordTTL = time.Second
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenMismatch = errors.New("token value mismatch")
	ErrSetConflict   = errors.New("token set conflict")
)

type TokenEntry struct {
	ID        [32]byte
	MAC       [32]byte
	CreatedAt int64 // unix milliseconds
	ExpiresAt int64 // unix milliseconds
	SingleUse bool
}

type TokenSetStore struct {
	kv     store.KV
	prefix string
	max    int
}

func NewTokenSetStore(kv store.KV, prefix string, maxPerSession int) *TokenSetStore {
	if prefix == "" {
		prefix = "aft"
	}
	if maxPerSession <= 0 {
		maxPerSession = 10
	}
	return &TokenSetStore{
		kv:     kv,
		prefix: prefix,
		max:    maxPerSession,
	}
}

func (s *TokenSetStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Insert appends entry to the session's set, pruning expired entries and
// evicting from the front when the bound is exceeded. It returns the IDs of
// evicted entries.
func (s *TokenSetStore) Insert(ctx context.Context, sessionID string, entry TokenEntry) ([][32]byte, error) {
	key := s.key(sessionID)

	for i := 0; i < maxRetries; i++ {
		entries, expected, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}

		entries = pruneExpired(entries, time.Now().UnixMilli())
		entries = append(entries, entry)

		var evicted [][32]byte
		for len(entries) > s.max {
			evicted = append(evicted, entries[0].ID)
			entries = entries[1:]
		}

		next, err := encodeTokenSet(entries)
		if err != nil {
			return nil, err
		}

		ok, err := s.kv.CompareAndSwap(ctx, key, expected, next, recordTTL(entries))
		if err != nil {
			return nil, err
		}
		if ok {
			return evicted, nil
		}
	}

	return nil, ErrSetConflict
}

// Consume looks up id, checks providedMAC in constant time, and removes the
// entry in the same swap when it is marked single-use. Expired entries found
// along the way are pruned.
func (s *TokenSetStore) Consume(ctx context.Context, sessionID string, id [32]byte, providedMAC [32]byte) (*TokenEntry, error) {
	key := s.key(sessionID)

	for i := 0; i < maxRetries; i++ {
		entries, expected, err := s.load(ctx, key)
		if err != nil {
			return nil, err
		}
		if expected == nil {
			return nil, ErrTokenNotFound
		}
		if entries == nil {
			// Corrupt record; drop it and report the token unknown.
			ok, err := s.writeBack(ctx, key, expected, nil)
			if err != nil {
				return nil, err
			}
			if ok {
				return nil, ErrTokenNotFound
			}
			continue
		}

		now := time.Now().UnixMilli()
		kept := pruneExpired(entries, now)
		pruned := len(kept) != len(entries)

		idx := -1
		for j := range kept {
			if kept[j].ID == id {
				idx = j
				break
			}
		}

		if idx < 0 {
			// The id may name an entry that just expired; report that as
			// expired rather than unknown.
			outcome := ErrTokenNotFound
			for j := range entries {
				if entries[j].ID == id {
					outcome = ErrTokenExpired
					break
				}
			}
			if !pruned {
				return nil, outcome
			}
			ok, err := s.writeBack(ctx, key, expected, kept)
			if err != nil {
				return nil, err
			}
			if ok {
				return nil, outcome
			}
			continue
		}

		matched := kept[idx]
		if subtle.ConstantTimeCompare(matched.MAC[:], providedMAC[:]) != 1 {
			if !pruned {
				return nil, ErrTokenMismatch
			}
			ok, err := s.writeBack(ctx, key, expected, kept)
			if err != nil {
				return nil, err
			}
			if ok {
				return nil, ErrTokenMismatch
			}
			continue
		}

		if matched.SingleUse {
			kept = append(kept[:idx], kept[idx+1:]...)
			pruned = true
		}

		if !pruned {
			return &matched, nil
		}
		ok, err := s.writeBack(ctx, key, expected, kept)
		if err != nil {
			return nil, err
		}
		if ok {
			return &matched, nil
		}
	}

	return nil, ErrSetConflict
}

// Remove deletes the entry with the given id. Removing an unknown id reports
// ErrTokenNotFound.
func (s *TokenSetStore) Remove(ctx context.Context, sessionID string, id [32]byte) error {
	key := s.key(sessionID)

	for i := 0; i < maxRetries; i++ {
		entries, expected, err := s.load(ctx, key)
		if err != nil {
			return err
		}
		if expected == nil {
			return ErrTokenNotFound
		}

		if entries == nil {
			ok, err := s.writeBack(ctx, key, expected, nil)
			if err != nil {
				return err
			}
			if ok {
				return ErrTokenNotFound
			}
			continue
		}

		idx := -1
		for j := range entries {
			if entries[j].ID == id {
				idx = j
				break
			}
		}
		if idx < 0 {
			return ErrTokenNotFound
		}

		kept := append(entries[:idx], entries[idx+1:]...)
		ok, err := s.writeBack(ctx, key, expected, kept)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return ErrSetConflict
}

// Replace swaps the whole set for a single fresh entry in one atomic write.
func (s *TokenSetStore) Replace(ctx context.Context, sessionID string, entry TokenEntry) error {
	key := s.key(sessionID)

	for i := 0; i < maxRetries; i++ {
		_, expected, err := s.load(ctx, key)
		if err != nil {
			return err
		}

		next, err := encodeTokenSet([]TokenEntry{entry})
		if err != nil {
			return err
		}

		ok, err := s.kv.CompareAndSwap(ctx, key, expected, next, recordTTL([]TokenEntry{entry}))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}

	return ErrSetConflict
}

// Clear drops the session's entire set.
func (s *TokenSetStore) Clear(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, s.key(sessionID))
}

// Entries returns the unexpired entries for a session without mutating the
// record. A missing record is an empty set.
func (s *TokenSetStore) Entries(ctx context.Context, sessionID string) ([]TokenEntry, error) {
	data, err := s.kv.Get(ctx, s.key(sessionID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	entries, err := decodeTokenSet(data)
	if err != nil {
		// Corrupt records read as empty; the next mutation replaces them.
		return nil, nil
	}
	return pruneExpired(entries, time.Now().UnixMilli()), nil
}

// Live reports how many unexpired entries the session holds.
func (s *TokenSetStore) Live(ctx context.Context, sessionID string) (int, error) {
	entries, err := s.Entries(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *TokenSetStore) load(ctx context.Context, key string) ([]TokenEntry, []byte, error) {
	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	entries, err := decodeTokenSet(data)
	if err != nil {
		// Corrupt record. Entries comes back nil while the raw bytes are
		// kept, so callers can swap the record away; decode of a valid
		// empty set yields a non-nil slice.
		return nil, data, nil
	}
	return entries, data, nil
}

func (s *TokenSetStore) writeBack(ctx context.Context, key string, expected []byte, entries []TokenEntry) (bool, error) {
	if len(entries) == 0 {
		return s.kv.CompareAndSwap(ctx, key, expected, nil, 0)
	}

	next, err := encodeTokenSet(entries)
	if err != nil {
		return false, err
	}
	return s.kv.CompareAndSwap(ctx, key, expected, next, recordTTL(entries))
}

func pruneExpired(entries []TokenEntry, now int64) []TokenEntry {
	kept := make([]TokenEntry, 0, len(entries))
	for _, e := range entries {
		if now <= e.ExpiresAt {
			kept = append(kept, e)
		}
	}
	return kept
}

func recordTTL(entries []TokenEntry) time.Duration {
	// Entries share one lifetime and are kept in creation order, so the
	// newest entry expires last.
	last := entries[len(entries)-1]
	ttl := time.Until(time.UnixMilli(last.ExpiresAt))
	if ttl < minRecordTTL {
		ttl = minRecordTTL
	}
	return ttl
}

func encodeTokenSet(entries []TokenEntry) ([]byte, error) {
	if len(entries) > 255 {
		return nil, errors.New("token set too large")
	}

	var buf bytes.Buffer
	buf.WriteByte(tokenSetVersionV1)
	buf.WriteByte(byte(len(entries)))

	for i := range entries {
		e := &entries[i]
		buf.Write(e.ID[:])
		buf.Write(e.MAC[:])
		if err := binary.Write(&buf, binary.BigEndian, e.CreatedAt); err != nil {
			return nil, err
		}
		if err := binary.Write(&buf, binary.BigEndian, e.ExpiresAt); err != nil {
			return nil, err
		}
		var flags byte
		if e.SingleUse {
			flags |= tokenFlagSingleUse
		}
		buf.WriteByte(flags)
	}

	return buf.Bytes(), nil
}

func decodeTokenSet(data []byte) ([]TokenEntry, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenSetVersionV1 {
		return nil, errors.New("invalid token set version")
	}

	count, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	entries := make([]TokenEntry, 0, count)
	for i := 0; i < int(count); i++ {
		var e TokenEntry
		if _, err := io.ReadFull(reader, e.ID[:]); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(reader, e.MAC[:]); err != nil {
			return nil, err
		}
		if err := binary.Read(reader, binary.BigEndian, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := binary.Read(reader, binary.BigEndian, &e.ExpiresAt); err != nil {
			return nil, err
		}
		flags, err := reader.ReadByte()
		if err != nil {
			return nil, err
		}
		e.SingleUse = flags&tokenFlagSingleUse != 0
		entries = append(entries, e)
	}

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in token set record")
	}

	return entries, nil
}
