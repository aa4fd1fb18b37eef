package sqlstore

import (
	"context"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/tradepost/catalog-server/internal/domain"
)

// CreateMessage stores a direct message.
func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	_, err := exec(ctx, s.db, s.sb.Insert("messages").Columns(messageColumns...).
		Values(m.ID, m.SenderID, m.RecipientID, m.Body, m.ClientRef, Time{m.CreatedAt}))
	return s.translate(err, "message already exists", "message not found")
}

// ListConversation returns the latest limit messages between two users,
// oldest first.
func (s *Store) ListConversation(ctx context.Context, userA, userB string, limit int) ([]*domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []messageRow
	err := selectAll(ctx, s.db, &rows, s.sb.Select(messageColumns...).
		From("messages").
		Where(sq.Or{
			sq.Eq{"sender_id": userA, "recipient_id": userB},
			sq.Eq{"sender_id": userB, "recipient_id": userA},
		}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	slices.Reverse(out)
	return out, nil
}
