package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

type ToggleState int

const (
	Idle ToggleState = iota
	Pending
)

func (s ToggleState) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

// ErrTogglePending: ya hay una petición en vuelo para este toggle.
var ErrTogglePending = errors.New("photogram: toggle request in flight")

// ApplyFunc envía al servidor el estado deseado.
type ApplyFunc func(ctx context.Context, on bool) error

// Toggle es un interruptor optimista: Flip cambia el estado local al momento,
// queda Pending mientras el servidor responde y vuelve a Idle. Si el servidor
// falla se restaura el estado previo.
type Toggle struct {
	apply ApplyFunc

	mu    sync.Mutex
	on    bool
	count int64
	state ToggleState
}

func NewToggle(on bool, count int64, apply ApplyFunc) *Toggle {
	return &Toggle{on: on, count: count, apply: apply}
}

// LikeToggle refleja isLiked y el contador de likes de un post.
func LikeToggle(c *Client, p Post) *Toggle {
	return NewToggle(p.IsLiked, p.Count.Likes, func(ctx context.Context, on bool) error {
		if on {
			return c.Like(ctx, p.ID)
		}
		return c.Unlike(ctx, p.ID)
	})
}

// FollowToggle refleja isFollowing y el número de seguidores de un perfil.
func FollowToggle(c *Client, p Profile) *Toggle {
	return NewToggle(p.IsFollowing, p.Count.FollowedBy, func(ctx context.Context, on bool) error {
		if on {
			return c.Follow(ctx, p.ID)
		}
		return c.Unfollow(ctx, p.ID)
	})
}

func (t *Toggle) Snapshot() (on bool, count int64, state ToggleState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.on, t.count, t.state
}

// Flip invierte el estado. Un 409 significa que el servidor ya estaba en el
// estado pedido y no provoca rollback.
func (t *Toggle) Flip(ctx context.Context) error {
	t.mu.Lock()
	if t.state == Pending {
		t.mu.Unlock()
		return ErrTogglePending
	}
	prevOn, prevCount := t.on, t.count
	t.on = !t.on
	if t.on {
		t.count++
	} else if t.count > 0 {
		t.count--
	}
	target := t.on
	t.state = Pending
	t.mu.Unlock()

	err := t.apply(ctx, target)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Idle
	if err != nil && StatusOf(err) != http.StatusConflict {
		t.on, t.count = prevOn, prevCount
		return err
	}
	return nil
}
