package repositories

import (
	"context"
	"errors"
	"fmt"

	"geostream/app/models"

	"github.com/dgraph-io/badger/v4"
)

// CreateFlag stores a flag. The flagged post or comment must exist.
func (s *Store) CreateFlag(ctx context.Context, flag *models.Flag) error {
	if err := flag.Validate(); err != nil {
		return err
	}

	id, err := nextID(s.flagSeq)
	if err != nil {
		return err
	}
	flag.ID = id

	data, err := marshalEntity(flag)
	if err != nil {
		return err
	}

	ref := flag.Resource()
	return s.update(ctx, func(txn *badger.Txn) error {
		ok, err := resourceExists(txn, ref)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		if err := txn.Set(flagKey(flag.ID), data); err != nil {
			return err
		}
		return txn.Set(flagRefKey(ref, flag.ID), encodeID(flag.ID))
	})
}

// GetFlag retrieves a flag by ID
func (s *Store) GetFlag(ctx context.Context, id uint64) (*models.Flag, error) {
	var flag models.Flag
	err := s.view(ctx, func(txn *badger.Txn) error {
		return getEntity(txn, flagKey(id), &flag)
	})
	if err != nil {
		return nil, err
	}
	return &flag, nil
}

// ListFlags returns all flags in id order.
func (s *Store) ListFlags(ctx context.Context) ([]*models.Flag, error) {
	flags := []*models.Flag{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte(FlagKeyPrefix), func(item *badger.Item) error {
			var flag models.Flag
			if err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &flag)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal flag: %w", err)
			}
			flags = append(flags, &flag)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return flags, nil
}

// ListFlagsByResource returns the flags raised against ref.
func (s *Store) ListFlagsByResource(ctx context.Context, ref models.ResourceRef) ([]*models.Flag, error) {
	flags := []*models.Flag{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		ids, err := flagIDsFor(txn, ref)
		if err != nil {
			return err
		}
		for _, id := range ids {
			var flag models.Flag
			if err := getEntity(txn, flagKey(id), &flag); err != nil {
				return fmt.Errorf("flag %d indexed but unreadable: %w", id, err)
			}
			flags = append(flags, &flag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return flags, nil
}

// resourceExists checks the flag target and touches its primary key, so a
// delete of the target racing this flag either sees it or retries.
func resourceExists(txn *badger.Txn, ref models.ResourceRef) (bool, error) {
	switch ref.Type {
	case models.ResourceTypePost:
		return touch(txn, postKey(ref.ID))
	case models.ResourceTypeComment:
		postID, err := getID(txn, commentRefKey(ref.ID))
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return touch(txn, commentKey(postID, ref.ID))
	default:
		return false, fmt.Errorf("unknown resource type %q", ref.Type)
	}
}

func flagIDsFor(txn *badger.Txn, ref models.ResourceRef) ([]uint64, error) {
	var ids []uint64
	err := scanPrefix(txn, flagRefPrefix(ref), func(item *badger.Item) error {
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := decodeID(val)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

// deleteFlagsTxn removes every flag raised against ref.
func deleteFlagsTxn(txn *badger.Txn, ref models.ResourceRef) error {
	ids, err := flagIDsFor(txn, ref)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := txn.Delete(flagKey(id)); err != nil {
			return err
		}
		if err := txn.Delete(flagRefKey(ref, id)); err != nil {
			return err
		}
	}
	return nil
}
