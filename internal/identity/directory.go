package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"device-tracking-backend/internal/model"
	"device-tracking-backend/internal/store"
)

var e164Re = regexp.MustCompile(`^\+[1-9]\d{5,14}$`)

const existsTimeout = 10 * time.Second

// UserStore is the part of the document store the directory reads.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByPhone(ctx context.Context, phone string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Directory is the registry of users allowed to sign in.
type Directory struct {
	store UserStore
	group singleflight.Group
}

// NewDirectory creates a Directory over s.
func NewDirectory(s UserStore) *Directory {
	return &Directory{store: s}
}

// ValidPhone reports whether phone is an E.164 number.
func ValidPhone(phone string) bool {
	return e164Re.MatchString(phone)
}

// Lookup returns the user registered for phone.
func (d *Directory) Lookup(ctx context.Context, phone string) (*model.User, error) {
	user, err := d.store.GetUserByPhone(ctx, phone)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", phone, ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns the user with the given id.
func (d *Directory) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := d.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("uid %s: %w", id, ErrUserNotFound)
	}
	return user, err
}

// Exists reports whether a user is registered for phone. Concurrent calls
// for the same number share one store read, which runs detached from any
// single caller's cancellation and is bounded by existsTimeout.
func (d *Directory) Exists(ctx context.Context, phone string) (bool, error) {
	ch := d.group.DoChan(phone, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), existsTimeout)
		defer cancel()

		_, err := d.Lookup(lookupCtx, phone)
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// Create registers a new user. New users never carry the admin claim
// unless asked for explicitly.
func (d *Directory) Create(ctx context.Context, phone, displayName string, admin bool) (*model.User, error) {
	phone = strings.TrimSpace(phone)
	if !ValidPhone(phone) {
		return nil, fmt.Errorf("%q: %w", phone, ErrInvalidPhone)
	}

	exists, err := d.Exists(ctx, phone)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", phone, ErrUserExists)
	}

	user := &model.User{
		PhoneNumber: phone,
		DisplayName: strings.TrimSpace(displayName),
		Admin:       admin,
	}
	if err := d.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
