package repositories

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"geostream/app/models"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefixes for different entity types
	PostKeyPrefix    = "post:"
	CommentKeyPrefix = "comment:"
	FlagKeyPrefix    = "flag:"

	// Secondary indexes
	CommentRefPrefix  = "cref:" // comment id -> post id
	CommentTimePrefix = "cts:"  // (post, created) -> comment id
	FlagRefPrefix     = "fref:" // (resource type, resource id, flag id) -> flag id

	// Sequence keys for auto-incrementing IDs
	PostSeqKey    = "seq:post"
	CommentSeqKey = "seq:comment"
	FlagSeqKey    = "seq:flag"
)

// IDs are zero-padded so lexicographic key order is numeric order.
func postKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", PostKeyPrefix, id))
}

func commentPrefix(postID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d:", CommentKeyPrefix, postID))
}

func commentKey(postID, id uint64) []byte {
	return append(commentPrefix(postID), fmt.Sprintf("%020d", id)...)
}

func commentRefKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", CommentRefPrefix, id))
}

func commentTimeKey(postID uint64, created time.Time) []byte {
	return []byte(fmt.Sprintf("%s%020d:%020d", CommentTimePrefix, postID, created.UnixNano()))
}

func flagKey(id uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", FlagKeyPrefix, id))
}

func flagRefPrefix(ref models.ResourceRef) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:", FlagRefPrefix, ref.Type, ref.ID))
}

func flagRefKey(ref models.ResourceRef, flagID uint64) []byte {
	return append(flagRefPrefix(ref), fmt.Sprintf("%020d", flagID)...)
}

func encodeID(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func decodeID(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid id encoding of %d bytes", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

// postRecord is the stored form of a post. The secret digest lives only
// here; models.Post never serializes it.
type postRecord struct {
	*models.Post
	Digest     []byte `json:"digest,omitempty"`
	MediaOwned bool   `json:"media_owned,omitempty"`
}

type commentRecord struct {
	*models.Comment
	Digest []byte `json:"digest,omitempty"`
}

func newPostRecord(p *models.Post) postRecord {
	cp := *p
	cp.Comments = nil
	return postRecord{Post: &cp, Digest: p.SecretDigest, MediaOwned: p.OwnsMedia}
}

func newCommentRecord(c *models.Comment) commentRecord {
	cp := *c
	return commentRecord{Comment: &cp, Digest: c.SecretDigest}
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// getEntity loads and decodes the value at key, mapping a missing key to
// ErrNotFound.
func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

func getID(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, err
	}
	return decodeID(val)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// touch rewrites key with its current value and reports whether it exists.
// A concurrent transaction that read key then fails to commit with
// badger.ErrConflict, which is how child inserts are made visible to a
// cascading delete that already scanned for children.
func touch(txn *badger.Txn, key []byte) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return false, err
	}
	return true, txn.Set(key, val)
}

// scanPrefix calls fn for every item under prefix in key order.
func scanPrefix(txn *badger.Txn, prefix []byte, fn func(item *badger.Item) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := fn(it.Item()); err != nil {
			return err
		}
	}
	return nil
}
