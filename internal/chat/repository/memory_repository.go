package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"old_vibes/internal/chat/domain"
)

type memoryConversationRepository struct {
	mu    sync.RWMutex
	convs map[string]*domain.Conversation
}

// NewMemoryConversationRepository process local ConversationRepository
func NewMemoryConversationRepository() ConversationRepository {
	return &memoryConversationRepository{convs: make(map[string]*domain.Conversation)}
}

func cloneConversation(c *domain.Conversation) *domain.Conversation {
	cp := *c
	if c.LastMessage != nil {
		lm := *c.LastMessage
		cp.LastMessage = &lm
	}
	return &cp
}

func (r *memoryConversationRepository) GetOrCreate(_ context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.convs[conv.ID]; ok {
		return cloneConversation(existing), false, nil
	}
	r.convs[conv.ID] = cloneConversation(conv)
	return cloneConversation(conv), true, nil
}

func (r *memoryConversationRepository) FindByID(_ context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneConversation(c), nil
}

func (r *memoryConversationRepository) activeOf(userID string) []*domain.Conversation {
	var out []*domain.Conversation
	for _, c := range r.convs {
		if c.IsActive && c.IsParticipant(userID) {
			out = append(out, c)
		}
	}
	return out
}

func (r *memoryConversationRepository) ListByUser(_ context.Context, userID string, limit, offset int) ([]*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	convs := r.activeOf(userID)
	sort.Slice(convs, func(i, j int) bool {
		if convs[i].UpdatedAt.Equal(convs[j].UpdatedAt) {
			return convs[i].ID < convs[j].ID
		}
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	out := make([]*domain.Conversation, 0, limit)
	for i := offset; i < len(convs) && len(out) < limit; i++ {
		out = append(out, cloneConversation(convs[i]))
	}
	return out, nil
}

func (r *memoryConversationRepository) update(id string, fn func(c *domain.Conversation)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return ErrNotFound
	}
	fn(c)
	return nil
}

func counter(c *domain.Conversation, role domain.Role) *int {
	if role == domain.RoleSeller {
		return &c.UnreadCount.Seller
	}
	return &c.UnreadCount.Buyer
}

func (r *memoryConversationRepository) ApplyMessage(_ context.Context, id string, snapshot *domain.LastMessage, receiver domain.Role, incUnread bool) error {
	return r.update(id, func(c *domain.Conversation) {
		if c.LastMessage == nil || !c.LastMessage.CreatedAt.After(snapshot.CreatedAt) {
			lm := *snapshot
			c.LastMessage = &lm
		}
		if incUnread {
			*counter(c, receiver)++
		}
		if snapshot.CreatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = snapshot.CreatedAt
		}
	})
}

func (r *memoryConversationRepository) DecrementUnread(_ context.Context, id string, role domain.Role, n int) error {
	return r.update(id, func(c *domain.Conversation) {
		p := counter(c, role)
		*p -= n
		if *p < 0 {
			*p = 0
		}
	})
}

func (r *memoryConversationRepository) SetBlocked(_ context.Context, id string, blocked bool, blockedBy string) error {
	return r.update(id, func(c *domain.Conversation) {
		c.IsBlocked = blocked
		c.BlockedBy = blockedBy
		c.UpdatedAt = time.Now().UTC()
	})
}

func (r *memoryConversationRepository) SumUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, c := range r.activeOf(userID) {
		total += c.UnreadFor(userID)
	}
	return total, nil
}

type memoryMessageRepository struct {
	mu   sync.RWMutex
	msgs map[string]*domain.Message
	// seq insertion order, ties on CreatedAt are broken by it
	seq   map[string]int
	count int
}

// NewMemoryMessageRepository process local MessageRepository
func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{
		msgs: make(map[string]*domain.Message),
		seq:  make(map[string]int),
	}
}

func cloneMessage(m *domain.Message) *domain.Message {
	cp := *m
	if m.OfferData != nil {
		od := *m.OfferData
		cp.OfferData = &od
	}
	if m.Attachments != nil {
		cp.Attachments = append([]string(nil), m.Attachments...)
	}
	return &cp
}

func (r *memoryMessageRepository) Insert(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	r.msgs[msg.ID] = cloneMessage(msg)
	r.seq[msg.ID] = r.count
	return nil
}

func (r *memoryMessageRepository) FindByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.msgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMessage(m), nil
}

func (r *memoryMessageRepository) ListByConversation(_ context.Context, conversationID string, limit, offset int) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var msgs []*domain.Message
	for _, m := range r.msgs {
		if m.ConversationID == conversationID && !m.IsDeleted {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return r.seq[msgs[i].ID] > r.seq[msgs[j].ID]
		}
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})

	out := make([]*domain.Message, 0, limit)
	for i := offset; i < len(msgs) && len(out) < limit; i++ {
		out = append(out, cloneMessage(msgs[i]))
	}
	return out, nil
}

func (r *memoryMessageRepository) mutate(id string, fn func(m *domain.Message) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return false, ErrNotFound
	}
	return fn(m), nil
}

func (r *memoryMessageRepository) MarkRead(_ context.Context, id, readerID string, at time.Time) (bool, bool, error) {
	var counted bool
	changed, err := r.mutate(id, func(m *domain.Message) bool {
		if m.IsRead || m.ReceiverID != readerID {
			return false
		}
		m.IsRead = true
		m.ReadAt = &at
		counted = m.Projection.UnreadCounted
		return true
	})
	return changed, counted, err
}

func (r *memoryMessageRepository) MarkConversationRead(_ context.Context, conversationID, readerID string, at time.Time) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var read, counted int64
	for _, m := range r.msgs {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			m.ReadAt = &at
			read++
			if m.Projection.UnreadCounted {
				counted++
			}
		}
	}
	return read, counted, nil
}

func (r *memoryMessageRepository) MarkUnreadCounted(_ context.Context, id string) (bool, error) {
	return r.mutate(id, func(m *domain.Message) bool {
		if m.IsRead || m.IsDeleted {
			return false
		}
		m.Projection.UnreadCounted = true
		return true
	})
}

func (r *memoryMessageRepository) UpdateOfferStatus(_ context.Context, id string, from, to domain.OfferStatus, at time.Time) (bool, error) {
	return r.mutate(id, func(m *domain.Message) bool {
		if m.OfferData == nil || m.OfferData.Status != from {
			return false
		}
		m.OfferData.Status = to
		m.UpdatedAt = at
		return true
	})
}

func (r *memoryMessageRepository) UpdateContent(_ context.Context, id, content string, at time.Time) (bool, error) {
	return r.mutate(id, func(m *domain.Message) bool {
		if m.IsDeleted {
			return false
		}
		m.Content = content
		m.IsEdited = true
		m.EditedAt = &at
		m.UpdatedAt = at
		return true
	})
}

func (r *memoryMessageRepository) SoftDelete(_ context.Context, id string, at time.Time) (bool, bool, error) {
	var counted bool
	changed, err := r.mutate(id, func(m *domain.Message) bool {
		if m.IsDeleted {
			return false
		}
		counted = m.Projection.UnreadCounted && !m.IsRead
		m.IsDeleted = true
		m.DeletedAt = &at
		m.UpdatedAt = at
		m.Projection.UnreadCounted = false
		return true
	})
	return changed, counted, err
}

func claimable(p domain.Projection, now, staleBefore time.Time) bool {
	switch p.State {
	case domain.ProjectionPending, domain.ProjectionFailed:
		return !p.NextAttemptAt.After(now)
	case domain.ProjectionClaimed:
		return p.ClaimedAt == nil || p.ClaimedAt.Before(staleBefore)
	}
	return false
}

func (r *memoryMessageRepository) ClaimUnprojected(_ context.Context, now, staleBefore time.Time, limit int) ([]*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*domain.Message
	for _, m := range r.msgs {
		if claimable(m.Projection, now, staleBefore) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return r.seq[due[i].ID] < r.seq[due[j].ID] })
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]*domain.Message, 0, len(due))
	for _, m := range due {
		claimedAt := now
		m.Projection.State = domain.ProjectionClaimed
		m.Projection.ClaimedAt = &claimedAt
		out = append(out, cloneMessage(m))
	}
	return out, nil
}

func (r *memoryMessageRepository) MarkProjected(_ context.Context, id string) error {
	_, err := r.mutate(id, func(m *domain.Message) bool {
		m.Projection.State = domain.ProjectionDone
		m.Projection.LastError = ""
		return true
	})
	return err
}

func (r *memoryMessageRepository) MarkProjectionFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	_, err := r.mutate(id, func(m *domain.Message) bool {
		m.Projection.State = domain.ProjectionFailed
		m.Projection.Attempts++
		m.Projection.NextAttemptAt = next
		m.Projection.LastError = errMsg
		return true
	})
	return err
}
