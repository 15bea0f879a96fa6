package control

import (
	"context"

	"github.com/sansad-av/talktime/internal/broadcast"
)

// offloadPayload moves every inline photo in p to hosted storage, in place
func (s *Server) offloadPayload(ctx context.Context, p broadcast.Payload) error {
	if s.photos == nil {
		return nil
	}
	switch v := p.(type) {
	case *broadcast.IdlePayload:
		return s.offloadChair(ctx, &v.Chair)
	case *broadcast.ZeroHourPayload:
		if err := s.offloadMember(ctx, v.Member); err != nil {
			return err
		}
		return s.offloadChair(ctx, &v.Chair)
	case *broadcast.MemberSpeakingPayload:
		if err := s.offloadMember(ctx, v.Member); err != nil {
			return err
		}
		return s.offloadChair(ctx, &v.Chair)
	case *broadcast.BillDiscussionPayload:
		if err := s.offloadMember(ctx, v.Member); err != nil {
			return err
		}
		return s.offloadChair(ctx, &v.Chair)
	case *broadcast.MessagePayload:
		if err := s.offloadEntry(ctx, v.Entry); err != nil {
			return err
		}
		for i := range v.Entries {
			if err := s.offloadEntry(ctx, &v.Entries[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) offloadPatch(ctx context.Context, p *broadcast.Patch) error {
	if s.photos == nil {
		return nil
	}
	if p.ChairpersonPhoto != nil {
		if err := s.resolve(ctx, p.ChairpersonPhoto); err != nil {
			return err
		}
	}
	if err := s.offloadMember(ctx, p.Member); err != nil {
		return err
	}
	if err := s.offloadEntry(ctx, p.MessageEntry); err != nil {
		return err
	}
	for i := range p.MessageEntries {
		if err := s.offloadEntry(ctx, &p.MessageEntries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) offloadChair(ctx context.Context, c *broadcast.Chair) error {
	return s.resolve(ctx, &c.Photo)
}

func (s *Server) offloadMember(ctx context.Context, m *broadcast.Member) error {
	if m == nil {
		return nil
	}
	return s.resolve(ctx, &m.Picture)
}

func (s *Server) offloadEntry(ctx context.Context, e *broadcast.MessageEntry) error {
	if e == nil {
		return nil
	}
	return s.resolve(ctx, &e.Photo)
}

func (s *Server) resolve(ctx context.Context, ref *string) error {
	if s.photos == nil || *ref == "" {
		return nil
	}
	url, err := s.photos.Resolve(ctx, *ref)
	if err != nil {
		return err
	}
	*ref = url
	return nil
}
