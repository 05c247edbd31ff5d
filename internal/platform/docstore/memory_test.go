package docstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"warden/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) TestGetAndSet() {
	s.Run("set then get round-trips", func() {
		doc := Document{"displayName": "Jane", "count": 2}
		s.Require().NoError(s.store.Set(s.ctx, "users", "u1", doc, false))

		got, err := s.store.Get(s.ctx, "users", "u1")
		s.Require().NoError(err)
		s.Equal("Jane", got["displayName"])
		// Values pass through JSON, so numbers come back as float64.
		s.Equal(float64(2), got["count"])
	})

	s.Run("get for absent document returns ErrNotFound", func() {
		_, err := s.store.Get(s.ctx, "users", "missing")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned document does not alias store internals", func() {
		s.Require().NoError(s.store.Set(s.ctx, "users", "u2", Document{"a": "x"}, false))

		got, err := s.store.Get(s.ctx, "users", "u2")
		s.Require().NoError(err)
		got["a"] = "mutated"

		again, err := s.store.Get(s.ctx, "users", "u2")
		s.Require().NoError(err)
		s.Equal("x", again["a"])
	})
}

func (s *MemoryStoreSuite) TestSetMergeSemantics() {
	s.Run("replace drops unmentioned fields", func() {
		s.Require().NoError(s.store.Set(s.ctx, "users", "u1", Document{"a": "1", "b": "2"}, false))
		s.Require().NoError(s.store.Set(s.ctx, "users", "u1", Document{"a": "9"}, false))

		got, err := s.store.Get(s.ctx, "users", "u1")
		s.Require().NoError(err)
		s.Equal("9", got["a"])
		s.NotContains(got, "b")
	})

	s.Run("merge keeps unmentioned fields", func() {
		s.Require().NoError(s.store.Set(s.ctx, "users", "u2", Document{"a": "1", "b": "2"}, false))
		s.Require().NoError(s.store.Set(s.ctx, "users", "u2", Document{"a": "9"}, true))

		got, err := s.store.Get(s.ctx, "users", "u2")
		s.Require().NoError(err)
		s.Equal("9", got["a"])
		s.Equal("2", got["b"])
	})

	s.Run("merge into absent document creates it", func() {
		s.Require().NoError(s.store.Set(s.ctx, "users", "u3", Document{"a": "1"}, true))

		got, err := s.store.Get(s.ctx, "users", "u3")
		s.Require().NoError(err)
		s.Equal("1", got["a"])
	})
}

func (s *MemoryStoreSuite) TestUpdate() {
	s.Run("merges partial fields into an existing document", func() {
		s.Require().NoError(s.store.Set(s.ctx, "users", "u1", Document{"a": "1", "b": "2"}, false))
		s.Require().NoError(s.store.Update(s.ctx, "users", "u1", Document{"b": "9"}))

		got, err := s.store.Get(s.ctx, "users", "u1")
		s.Require().NoError(err)
		s.Equal("1", got["a"])
		s.Equal("9", got["b"])
	})

	s.Run("never creates the document", func() {
		err := s.store.Update(s.ctx, "users", "missing", Document{"a": "1"})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
