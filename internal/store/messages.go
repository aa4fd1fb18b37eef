package store

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/tradepost/catalog-server/internal/domain"
)

// CreateMessage appends a message to its conversation.
func (s *Badger) CreateMessage(ctx context.Context, m *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, messageKey(m.SenderID, m.RecipientID, m.CreatedAt, m.ID), m)
	})
}

// ListConversation walks the conversation backwards from the newest message.
func (s *Badger) ListConversation(ctx context.Context, userA, userB string, limit int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	out := []*domain.Message{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := conversationPrefix(userA, userB)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(slices.Clone(prefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var m domain.Message
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(out)
	return out, nil
}
