package repositories

import (
	"context"
	"fmt"
	"time"

	"geostream/app/models"

	"github.com/dgraph-io/badger/v4"
)

// CreateComment stores a comment under its post. The post must exist. Two
// comments on one post never share a creation instant: a colliding
// timestamp is pushed forward by a nanosecond until it is free.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := comment.Validate(); err != nil {
		return err
	}

	id, err := nextID(s.commentSeq)
	if err != nil {
		return err
	}
	comment.ID = id
	requested := comment.Created

	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := touch(txn, postKey(comment.PostID))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		created := requested
		for {
			taken, err := exists(txn, commentTimeKey(comment.PostID, created))
			if err != nil {
				return err
			}
			if !taken {
				break
			}
			created = created.Add(time.Nanosecond)
		}
		comment.Created = created

		data, err := marshalEntity(newCommentRecord(comment))
		if err != nil {
			return err
		}
		if err := txn.Set(commentKey(comment.PostID, comment.ID), data); err != nil {
			return err
		}
		if err := txn.Set(commentRefKey(comment.ID), encodeID(comment.PostID)); err != nil {
			return err
		}
		return txn.Set(commentTimeKey(comment.PostID, created), encodeID(comment.ID))
	})
}

// GetComment retrieves a comment by ID
func (s *Store) GetComment(ctx context.Context, id uint64) (*models.Comment, error) {
	var comment *models.Comment
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		comment, err = loadComment(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListCommentsByPost returns the comments of a post oldest first. An unknown
// post yields an empty list.
func (s *Store) ListCommentsByPost(ctx context.Context, postID uint64) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%020d:", CommentTimePrefix, postID))
		return scanPrefix(txn, prefix, func(item *badger.Item) error {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id, err := decodeID(val)
			if err != nil {
				return err
			}
			var rec commentRecord
			if err := getEntity(txn, commentKey(postID, id), &rec); err != nil {
				return fmt.Errorf("comment %d indexed but unreadable: %w", id, err)
			}
			comments = append(comments, rec.comment())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// DeleteComment removes a comment and the flags raised against it. check
// runs inside the transaction; if it fails nothing is removed.
func (s *Store) DeleteComment(ctx context.Context, id uint64, check CommentCheck) (*models.Comment, error) {
	var deleted *models.Comment
	err := s.update(ctx, func(txn *badger.Txn) error {
		comment, err := loadComment(txn, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(comment); err != nil {
				return err
			}
		}
		if err := deleteCommentTxn(txn, comment); err != nil {
			return err
		}
		deleted = comment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func loadComment(txn *badger.Txn, id uint64) (*models.Comment, error) {
	postID, err := getID(txn, commentRefKey(id))
	if err != nil {
		return nil, err
	}
	var rec commentRecord
	if err := getEntity(txn, commentKey(postID, id), &rec); err != nil {
		return nil, err
	}
	return rec.comment(), nil
}

// deleteCommentTxn removes a comment, its indexes and its flags.
func deleteCommentTxn(txn *badger.Txn, c *models.Comment) error {
	if err := deleteFlagsTxn(txn, c.Resource()); err != nil {
		return err
	}
	for _, key := range [][]byte{
		commentTimeKey(c.PostID, c.Created),
		commentRefKey(c.ID),
		commentKey(c.PostID, c.ID),
	} {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (r commentRecord) comment() *models.Comment {
	c := r.Comment
	if c == nil {
		c = &models.Comment{}
	}
	c.SecretDigest = r.Digest
	return c
}
