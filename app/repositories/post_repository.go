package repositories

import (
	"context"
	"fmt"
	"sort"

	"geostream/app/models"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// CreatePost assigns the next post id and stores the post.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}

	id, err := nextID(s.postSeq)
	if err != nil {
		return err
	}
	post.ID = id

	data, err := marshalEntity(newPostRecord(post))
	if err != nil {
		return err
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(postKey(post.ID), data)
	})
}

// GetPost retrieves a post by ID. Comments are not populated.
func (s *Store) GetPost(ctx context.Context, id uint64) (*models.Post, error) {
	var post *models.Post
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		post, err = loadPost(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns every stored post ordered by creation time.
func (s *Store) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(PostKeyPrefix), func(item *badger.Item) error {
			var rec postRecord
			if err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &rec)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			posts = append(posts, rec.post())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if posts[i].Created.Equal(posts[j].Created) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].Created.Before(posts[j].Created)
	})
	return posts, nil
}

// DeletePost removes a post together with its comments and every flag that
// points at the post or one of those comments. check runs against the
// stored post inside the same transaction; if it fails nothing is removed.
func (s *Store) DeletePost(ctx context.Context, id uint64, check PostCheck) (*models.Post, error) {
	var deleted *models.Post
	var commentCount int
	err := s.update(ctx, func(txn *badger.Txn) error {
		post, err := loadPost(txn, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(post); err != nil {
				return err
			}
		}

		var comments []*models.Comment
		err = scanPrefix(txn, commentPrefix(id), func(item *badger.Item) error {
			var rec commentRecord
			if err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &rec)
			}); err != nil {
				return err
			}
			comments = append(comments, rec.comment())
			return nil
		})
		if err != nil {
			return err
		}

		for _, c := range comments {
			if err := deleteCommentTxn(txn, c); err != nil {
				return err
			}
		}
		if err := deleteFlagsTxn(txn, post.Resource()); err != nil {
			return err
		}
		if err := txn.Delete(postKey(id)); err != nil {
			return err
		}

		deleted = post
		commentCount = len(comments)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("post deleted",
		zap.Uint64("post_id", id),
		zap.Int("comments", commentCount))
	return deleted, nil
}

func loadPost(txn *badger.Txn, id uint64) (*models.Post, error) {
	var rec postRecord
	if err := getEntity(txn, postKey(id), &rec); err != nil {
		return nil, err
	}
	return rec.post(), nil
}

func (r postRecord) post() *models.Post {
	p := r.Post
	if p == nil {
		p = &models.Post{}
	}
	p.SecretDigest = r.Digest
	p.OwnsMedia = r.MediaOwned
	if p.Comments == nil {
		p.Comments = []*models.Comment{}
	}
	return p
}
