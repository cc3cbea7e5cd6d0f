// Package repotest provides in-memory repositories for tests of the layers
// above the database.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/metaltracker/internal/common"
	"github.com/dmitrijs2005/metaltracker/internal/dbx"
	"github.com/dmitrijs2005/metaltracker/internal/server/models"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/positions"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/settings"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/snapshots"
	"github.com/dmitrijs2005/metaltracker/internal/server/repositories/users"
)

// Store backs every repository with maps. Repositories ignore the DBTX they
// are bound to, so transactions have no isolation. Tests may read and modify
// the maps directly between calls.
type Store struct {
	mu sync.Mutex

	nextID         int64
	Users          map[int64]*models.User
	RefreshTokens  map[string]*models.RefreshToken
	APIKeys        map[int64]*models.APIKey
	Positions      map[int64]*models.Position
	Settings       map[int64]*models.UserSettings
	Snapshots      map[SnapshotKey]*models.Snapshot

	// LockedUsers records every LockByID call in order.
	LockedUsers []int64
	// FailUpsert makes snapshot upserts of the given user fail.
	FailUpsert map[int64]error
}

// SnapshotKey is the user id and the Unix time of the snapshot date.
type SnapshotKey [2]int64

func NewStore() *Store {
	return &Store{
		Users:         map[int64]*models.User{},
		RefreshTokens: map[string]*models.RefreshToken{},
		APIKeys:       map[int64]*models.APIKey{},
		Positions:     map[int64]*models.Position{},
		Settings:      map[int64]*models.UserSettings{},
		Snapshots:     map[SnapshotKey]*models.Snapshot{},
		FailUpsert:    map[int64]error{},
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Manager returns a repomanager.RepositoryManager over the store.
func (s *Store) Manager() repomanager.RepositoryManager {
	return manager{s}
}

type manager struct{ s *Store }

func (m manager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m manager) Users(dbx.DBTX) users.Repository { return (*userRepo)(m.s) }
func (m manager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return (*refreshRepo)(m.s) }
func (m manager) APIKeys(dbx.DBTX) apikeys.Repository { return (*keyRepo)(m.s) }
func (m manager) Positions(dbx.DBTX) positions.Repository { return (*positionRepo)(m.s) }
func (m manager) Settings(dbx.DBTX) settings.Repository { return (*settingsRepo)(m.s) }
func (m manager) Snapshots(dbx.DBTX) snapshots.Repository { return (*snapshotRepo)(m.s) }

type userRepo Store

func (f *userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := *u
	c.ID = s.id()
	c.CreatedAt = time.Now()
	s.Users[c.ID] = &c
	out := c
	return &out, nil
}

func (f *userRepo) find(match func(*models.User) bool) (*models.User, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.Users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.ID == id })
}

func (f *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *userRepo) GetByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
}

func (f *userRepo) LinkGoogleID(_ context.Context, id int64, googleID string) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.GoogleID = &googleID
	return nil
}

func (f *userRepo) UpdateTier(_ context.Context, id int64, tier models.Tier) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.Users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Tier = tier
	return nil
}

func (f *userRepo) LockByID(_ context.Context, id int64) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Users[id]; !ok {
		return common.ErrorNotFound
	}
	s.LockedUsers = append(s.LockedUsers, id)
	return nil
}

func (f *userRepo) ListActiveWithPositions(_ context.Context) ([]*models.User, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	owners := map[int64]bool{}
	for _, p := range s.Positions {
		owners[p.UserID] = true
	}
	var out []*models.User
	for _, u := range s.Users {
		if u.IsActive && owners[u.ID] {
			c := *u
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type refreshRepo Store

func (f *refreshRepo) Create(_ context.Context, userID int64, token string, validity time.Duration) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RefreshTokens[token] = &models.RefreshToken{ID: s.id(), UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *refreshRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.RefreshTokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *t
	return &c, nil
}

func (f *refreshRepo) Delete(_ context.Context, token string) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.RefreshTokens[token]; !ok {
		return common.ErrorNotFound
	}
	delete(s.RefreshTokens, token)
	return nil
}

func (f *refreshRepo) DeleteExpired(_ context.Context) (int64, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, t := range s.RefreshTokens {
		if t.ExpiredAt(time.Now()) {
			delete(s.RefreshTokens, k)
			n++
		}
	}
	return n, nil
}

type keyRepo Store

func (f *keyRepo) CountByUser(_ context.Context, userID int64) (int, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.APIKeys {
		if k.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *keyRepo) Create(_ context.Context, key *models.APIKey) (*models.APIKey, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *key
	c.ID = s.id()
	c.CreatedAt = time.Now()
	s.APIKeys[c.ID] = &c
	out := c
	return &out, nil
}

func (f *keyRepo) FindByHash(_ context.Context, keyHash string) (*models.APIKey, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.APIKeys {
		if k.KeyHash == keyHash {
			c := *k
			return &c, nil
		}
	}
	return nil, common.ErrKeyNotFound
}

func (f *keyRepo) ListByUser(_ context.Context, userID int64) ([]*models.APIKey, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.APIKey
	for _, k := range s.APIKeys {
		if k.UserID == userID {
			c := *k
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *keyRepo) Delete(_ context.Context, userID, keyID int64) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.APIKeys[keyID]
	if !ok || k.UserID != userID {
		return common.ErrKeyNotFound
	}
	delete(s.APIKeys, keyID)
	return nil
}

func (f *keyRepo) TouchLastUsed(_ context.Context, keyID int64, at time.Time) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if k, ok := s.APIKeys[keyID]; ok {
		k.LastUsedAt = &at
	}
	return nil
}

type positionRepo Store

func (f *positionRepo) Create(_ context.Context, p *models.Position) (*models.Position, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	c.ID = s.id()
	s.Positions[c.ID] = &c
	out := c
	return &out, nil
}

func (f *positionRepo) Get(_ context.Context, userID, id int64) (*models.Position, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Positions[id]
	if !ok || p.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c := *p
	return &c, nil
}

func (f *positionRepo) List(_ context.Context, userID int64, metal *models.Metal) ([]*models.Position, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Position, 0)
	for _, p := range s.Positions {
		if p.UserID == userID && (metal == nil || p.MetalType == *metal) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *positionRepo) Update(_ context.Context, p *models.Position) (*models.Position, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.Positions[p.ID]
	if !ok || existing.UserID != p.UserID {
		return nil, common.ErrorNotFound
	}
	c := *p
	s.Positions[p.ID] = &c
	out := c
	return &out, nil
}

func (f *positionRepo) Delete(_ context.Context, userID, id int64) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Positions[id]
	if !ok || p.UserID != userID {
		return common.ErrorNotFound
	}
	delete(s.Positions, id)
	return nil
}

func (f *positionRepo) CountByUser(_ context.Context, userID int64) (int, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.Positions {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

type settingsRepo Store

func (f *settingsRepo) Get(_ context.Context, userID int64) (*models.UserSettings, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.Settings[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *st
	return &c, nil
}

func (f *settingsRepo) Upsert(_ context.Context, st *models.UserSettings) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *st
	s.Settings[st.UserID] = &c
	return nil
}

type snapshotRepo Store

func (f *snapshotRepo) Upsert(_ context.Context, snap *models.Snapshot) error {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailUpsert[snap.UserID]; err != nil {
		return err
	}
	c := *snap
	s.Snapshots[SnapshotKey{snap.UserID, snap.Date.Unix()}] = &c
	return nil
}

func (f *snapshotRepo) ListSince(_ context.Context, userID int64, since time.Time) ([]*models.Snapshot, error) {
	s := (*Store)(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Snapshot
	for _, snap := range s.Snapshots {
		if snap.UserID == userID && !snap.Date.Before(since) {
			c := *snap
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
