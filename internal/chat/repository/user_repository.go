package repository

import (
	"context"
	"sync"

	"old_vibes/internal/chat/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// UserDirectory display fields of users, owned by the member service
type UserDirectory interface {
	// FindProfiles profiles keyed by id, unknown ids are absent from the map
	FindProfiles(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error)
}

type pgUserDirectory struct {
	db *pgxpool.Pool
}

// NewPGUserDirectory UserDirectory reading the member table
func NewPGUserDirectory(db *pgxpool.Pool) UserDirectory {
	return &pgUserDirectory{db: db}
}

func (r *pgUserDirectory) FindProfiles(ctx context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	profiles := make(map[string]*domain.UserProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := r.db.Query(ctx,
		"SELECT member_id, COALESCE(username, ''), COALESCE(avatar_url, '') FROM member WHERE member_id = ANY($1)",
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.UserProfile
		if err := rows.Scan(&p.ID, &p.Username, &p.AvatarURL); err != nil {
			return nil, err
		}
		profiles[p.ID] = &p
	}
	return profiles, rows.Err()
}

// StaticUserDirectory in-memory UserDirectory
type StaticUserDirectory struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserProfile
}

// NewStaticUserDirectory create a StaticUserDirectory
func NewStaticUserDirectory(profiles ...domain.UserProfile) *StaticUserDirectory {
	d := &StaticUserDirectory{profiles: make(map[string]domain.UserProfile)}
	for _, p := range profiles {
		d.profiles[p.ID] = p
	}
	return d
}

// Put add or replace a profile
func (d *StaticUserDirectory) Put(p domain.UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.ID] = p
}

// FindProfiles implements UserDirectory
func (d *StaticUserDirectory) FindProfiles(_ context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]*domain.UserProfile, len(ids))
	for _, id := range ids {
		if p, ok := d.profiles[id]; ok {
			cp := p
			out[id] = &cp
		}
	}
	return out, nil
}
