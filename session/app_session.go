package session

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"library-lending/models"
)

var json = jsoniter.ConfigFastest

// AppSessionStore tracks the sessions behind issued login tokens, keyed
// by token ID, so a token dies server-side on logout or user deletion
// even before it expires.
type AppSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAppSessionStore(rdb *redis.Client, ttl time.Duration) *AppSessionStore {
	return &AppSessionStore{rdb: rdb, ttl: ttl}
}

// AppSession records who a token was issued to and what their role
// allowed at issue time. AuthRequired still loads the live role on every
// request; the snapshot is for inspecting live and revoked sessions.
type AppSession struct {
	UserID    string `json:"uid"`
	RoleName  string `json:"role"`
	CanBorrow bool   `json:"canBorrow"`
	CanManage bool   `json:"canManage"`
	IsAdmin   bool   `json:"isAdmin"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func newAppSession(u *models.User, now time.Time, ttl time.Duration) AppSession {
	return AppSession{
		UserID:    u.ID,
		RoleName:  u.Role.Name,
		CanBorrow: u.Role.CanBorrow,
		CanManage: u.Role.CanManage,
		IsAdmin:   u.Role.IsAdmin,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
}

func key(id string) string         { return fmt.Sprintf("lib:sess:%s", id) }
func userSetKey(uid string) string { return fmt.Sprintf("lib:user_sessions:%s", uid) }

func (s *AppSessionStore) Create(ctx context.Context, id string, u *models.User) error {
	b, _ := json.Marshal(newAppSession(u, time.Now(), s.ttl))
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key(id), b, s.ttl)
	pipe.SAdd(ctx, userSetKey(u.ID), id)
	pipe.Expire(ctx, userSetKey(u.ID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AppSessionStore) Get(ctx context.Context, id string) (*AppSession, error) {
	b, err := s.rdb.Get(ctx, key(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var as AppSession
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return &as, nil
}

func (s *AppSessionStore) Delete(ctx context.Context, id string) error {
	as, _ := s.Get(ctx, id) // 忽略失败
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key(id))
	if as != nil {
		pipe.SRem(ctx, userSetKey(as.UserID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAllForUser kills every live session of the user, used when the
// account is deleted.
func (s *AppSessionStore) RevokeAllForUser(ctx context.Context, userID string) error {
	ids, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, sid := range ids {
		pipe.Del(ctx, key(sid))
	}
	pipe.Del(ctx, userSetKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
