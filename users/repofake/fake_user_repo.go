package userrepofake

import (
	"context"
	"sort"
	"strings"
	"sync"

	errs "github.com/astba/trainingcenter/internal/errors"
	"github.com/astba/trainingcenter/users"
)

var _ users.Repo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	lock    sync.RWMutex
	byID    map[string]*users.User
	byEmail map[string]string // email -> user ID
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		byID:    make(map[string]*users.User),
		byEmail: make(map[string]string),
	}
}

func (r *FakeUserRepo) Create(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return errs.ErrEmailTaken
	}
	u := *user
	r.byID[u.ID] = &u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *FakeUserRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

func (r *FakeUserRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	u := *r.byID[id]
	return &u, nil
}

func (r *FakeUserRepo) GetByGoogleID(_ context.Context, googleID string) (*users.User, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if googleID == "" {
		return nil, errs.ErrUserNotFound
	}
	for _, user := range r.byID {
		if user.GoogleID == googleID {
			u := *user
			return &u, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (r *FakeUserRepo) Update(_ context.Context, user *users.User) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	existing, ok := r.byID[user.ID]
	if !ok {
		return errs.ErrUserNotFound
	}
	if id, ok := r.byEmail[user.Email]; ok && id != user.ID {
		return errs.ErrEmailTaken
	}
	delete(r.byEmail, existing.Email)
	u := *user
	r.byID[u.ID] = &u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *FakeUserRepo) List(_ context.Context, query string, limit, offset int) ([]*users.User, int64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	query = strings.ToLower(query)
	var matches []*users.User
	for _, user := range r.byID {
		if query != "" &&
			!strings.Contains(strings.ToLower(user.Email), query) &&
			!strings.Contains(strings.ToLower(user.FirstName), query) &&
			!strings.Contains(strings.ToLower(user.LastName), query) {
			continue
		}
		u := *user
		matches = append(matches, &u)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	total := int64(len(matches))
	if offset >= len(matches) {
		return nil, total, nil
	}
	matches = matches[offset:]
	if limit < len(matches) {
		matches = matches[:limit]
	}
	return matches, total, nil
}
