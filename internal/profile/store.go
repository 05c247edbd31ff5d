package profile

import (
	"context"
	"fmt"
	"time"

	"warden/internal/platform/docstore"
	"warden/pkg/domain"
	"warden/pkg/requestcontext"
)

// Store adapts the generic document store to typed profile records.
// Timestamps are assigned at write time through the request clock.
type Store struct {
	docs docstore.Store
}

// NewStore constructs a profile store over the given document backend.
func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

// FindByUID fetches a profile. Absent role/permission sets are replaced with
// defaults; storage is never surfaced with empty grants.
// Errors: sentinel.ErrNotFound when no record exists.
func (s *Store) FindByUID(ctx context.Context, uid string) (*Profile, error) {
	doc, err := s.docs.Get(ctx, Collection, uid)
	if err != nil {
		return nil, err
	}
	return decode(uid, doc).withDefaults(), nil
}

// Create writes a new profile record with default grants and store-assigned
// timestamps, returning the record as persisted.
func (s *Store) Create(ctx context.Context, p Profile) (*Profile, error) {
	now := requestcontext.Now(ctx)
	p.CreatedAt = now
	p.UpdatedAt = now
	p.LastLoginAt = now
	stored := *p.withDefaults()

	if err := s.docs.Set(ctx, Collection, p.UID, encode(&stored), false); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &stored, nil
}

// TouchLogin refreshes UpdatedAt and LastLoginAt on an existing record.
func (s *Store) TouchLogin(ctx context.Context, uid string) error {
	now := requestcontext.Now(ctx)
	return s.docs.Update(ctx, Collection, uid, docstore.Document{
		"updatedAt":   encodeTime(now),
		"lastLoginAt": encodeTime(now),
	})
}

// UpdateRoles replaces the stored role set.
// Errors propagate uncaught; administrative writes are not retried here.
func (s *Store) UpdateRoles(ctx context.Context, uid string, roles []domain.Role) error {
	values := make([]string, len(roles))
	for i, r := range roles {
		values[i] = r.String()
	}
	return s.docs.Update(ctx, Collection, uid, docstore.Document{
		"roles":     values,
		"updatedAt": encodeTime(requestcontext.Now(ctx)),
	})
}

// UpdatePermissions replaces the stored permission set.
func (s *Store) UpdatePermissions(ctx context.Context, uid string, perms []domain.Permission) error {
	values := make([]string, len(perms))
	for i, perm := range perms {
		values[i] = string(perm)
	}
	return s.docs.Update(ctx, Collection, uid, docstore.Document{
		"permissions": values,
		"updatedAt":   encodeTime(requestcontext.Now(ctx)),
	})
}

func encode(p *Profile) docstore.Document {
	roles := make([]string, len(p.Roles))
	for i, r := range p.Roles {
		roles[i] = r.String()
	}
	perms := make([]string, len(p.Permissions))
	for i, perm := range p.Permissions {
		perms[i] = string(perm)
	}
	return docstore.Document{
		"uid":         p.UID,
		"email":       p.Email,
		"displayName": p.DisplayName,
		"photoURL":    p.PhotoURL,
		"roles":       roles,
		"permissions": perms,
		"createdAt":   encodeTime(p.CreatedAt),
		"updatedAt":   encodeTime(p.UpdatedAt),
		"lastLoginAt": encodeTime(p.LastLoginAt),
	}
}

func decode(uid string, doc docstore.Document) *Profile {
	p := &Profile{UID: uid}
	p.Email = stringField(doc, "email")
	p.DisplayName = stringField(doc, "displayName")
	p.PhotoURL = stringField(doc, "photoURL")
	for _, v := range sliceField(doc, "roles") {
		// Unknown stored roles are dropped rather than surfaced; the closed
		// set is enforced on every read.
		if r, err := domain.ParseRole(v); err == nil {
			p.Roles = append(p.Roles, r)
		}
	}
	for _, v := range sliceField(doc, "permissions") {
		p.Permissions = append(p.Permissions, domain.Permission(v))
	}
	p.CreatedAt = timeField(doc, "createdAt")
	p.UpdatedAt = timeField(doc, "updatedAt")
	p.LastLoginAt = timeField(doc, "lastLoginAt")
	return p
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func stringField(doc docstore.Document, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

// sliceField tolerates both []string (memory writes) and []any (JSON round
// trips through redis/postgres).
func sliceField(doc docstore.Document, key string) []string {
	switch v := doc[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func timeField(doc docstore.Document, key string) time.Time {
	raw, ok := doc[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
