package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lottosix/lottery-api/internal/domain/entity"
)

// In-memory repository fakes. Behavior mirrors the Postgres
// implementations closely enough for service-level tests: generated
// ids, copy-on-read, insertion-ordered listings.

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*entity.User{}}
}

func copyUser(u *entity.User) *entity.User {
	c := *u
	return &c
}

func (r *fakeUserRepo) Create(u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.users {
		if e.Email == u.Email {
			return fmt.Errorf("duplicate email %s", u.Email)
		}
	}
	r.seq++
	u.ID = fmt.Sprintf("user-%d", r.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = copyUser(u)
	return nil
}

func (r *fakeUserRepo) GetByID(id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByEmail(email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Update(u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return fmt.Errorf("user %s not found", u.ID)
	}
	u.UpdatedAt = time.Now()
	r.users[u.ID] = copyUser(u)
	return nil
}

func (r *fakeUserRepo) UpdateLogins(u *entity.User) error { return r.Update(u) }

func (r *fakeUserRepo) UpdatePassword(id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	u.Password = hash
	return nil
}

func (r *fakeUserRepo) list(filter func(*entity.User) bool) []*entity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.User
	for _, u := range r.users {
		if filter(u) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeUserRepo) ListByRole(role string) ([]*entity.User, error) {
	return r.list(func(u *entity.User) bool { return u.Role == role }), nil
}

func (r *fakeUserRepo) ListAll() ([]*entity.User, error) {
	return r.list(func(*entity.User) bool { return true }), nil
}

type fakeDrawRepo struct {
	mu    sync.Mutex
	seq   int
	draws map[string]*entity.Draw
	order []string

	// failUpdateAfter makes the Nth Update call fail, for testing
	// partial-batch behavior. Zero disables it.
	failUpdateAfter int
	updateCalls     int

	// Simulated infrastructure failures for the master-draw lookups.
	activeMasterErr error
	latestMasterErr error
}

func newFakeDrawRepo() *fakeDrawRepo {
	return &fakeDrawRepo{draws: map[string]*entity.Draw{}}
}

func copyDraw(d *entity.Draw) *entity.Draw {
	c := *d
	c.Numbers = append([]byte(nil), d.Numbers...)
	return &c
}

func (r *fakeDrawRepo) Create(d *entity.Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.MasterDraw && !d.BeenPlayed {
		for _, e := range r.draws {
			if e.MasterDraw && !e.BeenPlayed {
				return fmt.Errorf("active master draw already exists")
			}
		}
	}
	r.seq++
	d.ID = fmt.Sprintf("draw-%d", r.seq)
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	r.draws[d.ID] = copyDraw(d)
	r.order = append(r.order, d.ID)
	return nil
}

func (r *fakeDrawRepo) ActiveMasterDraw() (*entity.Draw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeMasterErr != nil {
		return nil, r.activeMasterErr
	}
	for _, id := range r.order {
		if d, ok := r.draws[id]; ok && d.MasterDraw && !d.BeenPlayed {
			return copyDraw(d), nil
		}
	}
	return nil, nil
}

func (r *fakeDrawRepo) LatestMasterDraw() (*entity.Draw, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latestMasterErr != nil {
		return nil, r.latestMasterErr
	}
	var latest *entity.Draw
	for _, id := range r.order {
		if d, ok := r.draws[id]; ok && d.MasterDraw {
			if latest == nil || d.LotteryRound > latest.LotteryRound {
				latest = d
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	return copyDraw(latest), nil
}

func (r *fakeDrawRepo) ListUnplayedUserDraws() ([]*entity.Draw, error) {
	return r.listFiltered(func(d *entity.Draw) bool { return !d.MasterDraw && !d.BeenPlayed }), nil
}

func (r *fakeDrawRepo) ListUserDraws(userID string, played bool) ([]*entity.Draw, error) {
	return r.listFiltered(func(d *entity.Draw) bool {
		return !d.MasterDraw && d.UserID == userID && d.BeenPlayed == played
	}), nil
}

func (r *fakeDrawRepo) listFiltered(filter func(*entity.Draw) bool) []*entity.Draw {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Draw
	for _, id := range r.order {
		if d, ok := r.draws[id]; ok && filter(d) {
			out = append(out, copyDraw(d))
		}
	}
	return out
}

func (r *fakeDrawRepo) Update(d *entity.Draw) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.failUpdateAfter > 0 && r.updateCalls >= r.failUpdateAfter {
		return fmt.Errorf("simulated update failure")
	}
	if _, ok := r.draws[d.ID]; !ok {
		return fmt.Errorf("draw %s not found", d.ID)
	}
	d.UpdatedAt = time.Now()
	r.draws[d.ID] = copyDraw(d)
	return nil
}

func (r *fakeDrawRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.draws[id]; !ok {
		return fmt.Errorf("draw %s not found", id)
	}
	delete(r.draws, id)
	return nil
}

func (r *fakeDrawRepo) DeletePlayedUserDraws(userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, d := range r.draws {
		if d.UserID == userID && d.BeenPlayed && !d.MasterDraw {
			delete(r.draws, id)
			n++
		}
	}
	return n, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
}

func (r *fakeAuditRepo) Insert(e *entity.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	e.CreatedAt = time.Now()
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) Latest(n int) ([]*entity.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AuditEntry
	for i := len(r.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

// fakeAuthState is an in-memory AuthStateStore; TTLs are accepted and
// ignored.
type fakeAuthState struct {
	mu       sync.Mutex
	attempts map[string]int
	tokens   map[string]string
	sessions map[string]map[string]string
}

func newFakeAuthState() *fakeAuthState {
	return &fakeAuthState{
		attempts: map[string]int{},
		tokens:   map[string]string{},
		sessions: map[string]map[string]string{},
	}
}

func (s *fakeAuthState) Attempts(_ context.Context, sid string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[sid], nil
}

func (s *fakeAuthState) IncrAttempts(_ context.Context, sid string, _ time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[sid]++
	return s.attempts[sid], nil
}

func (s *fakeAuthState) ResetAttempts(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, sid)
	return nil
}

func (s *fakeAuthState) PutSetupToken(_ context.Context, token, email string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = email
	return nil
}

func (s *fakeAuthState) TakeSetupToken(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := s.tokens[token]
	delete(s.tokens, token)
	return email, nil
}

func (s *fakeAuthState) SaveSession(_ context.Context, userID string, fields map[string]any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := map[string]string{}
	for k, v := range fields {
		sess[k] = fmt.Sprint(v)
	}
	s.sessions[userID] = sess
	return nil
}

func (s *fakeAuthState) GetSession(_ context.Context, userID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID], nil
}

func (s *fakeAuthState) DropSession(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
