package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ishflow/ishflow-backend/internal/modules/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedStoreMock struct {
	getByUserIDFn    func(context.Context, uuid.UUID, int) ([]domain.Notification, error)
	markAsReadFn     func(context.Context, uuid.UUID, uuid.UUID) error
	markManyAsReadFn func(context.Context, []uuid.UUID, uuid.UUID) error
}

func (m feedStoreMock) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	return m.getByUserIDFn(ctx, userID, limit)
}

func (m feedStoreMock) MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return m.markAsReadFn(ctx, notificationID, userID)
}

func (m feedStoreMock) MarkManyAsRead(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) error {
	return m.markManyAsReadFn(ctx, ids, userID)
}

type fakeSubscription struct {
	closed chan struct{}
}

func (s *fakeSubscription) Close() error {
	close(s.closed)
	return nil
}

type fakeSubscriber struct {
	sub     *fakeSubscription
	handler func(domain.Notification)
	err     error
	calls   int
}

func (s *fakeSubscriber) Subscribe(_ context.Context, _ uuid.UUID, handler func(domain.Notification)) (domain.Subscription, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	s.handler = handler
	s.sub = &fakeSubscription{closed: make(chan struct{})}
	return s.sub, nil
}

func (s *fakeSubscriber) isClosed() bool {
	if s.sub == nil {
		return false
	}
	select {
	case <-s.sub.closed:
		return true
	default:
		return false
	}
}

func makeNotification(userID uuid.UUID, read bool, age time.Duration) domain.Notification {
	return domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.TypeAppointmentNew,
		Title:     "New appointment",
		Message:   "A customer booked a slot",
		IsRead:    read,
		CreatedAt: time.Now().Add(-age),
	}
}

func newTestFeed(store FeedStore, sub domain.Subscriber) *Feed {
	return NewFeed(store, sub, domain.RoleBusiness)
}

func TestFeed_Initialize(t *testing.T) {
	t.Run("idle without a user", func(t *testing.T) {
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				t.Fatal("fetch must not run without a user")
				return nil, nil
			},
		}
		sub := &fakeSubscriber{}
		f := newTestFeed(store, sub)

		f.Initialize(context.Background(), uuid.Nil)

		assert.False(t, f.IsLoading())
		assert.Empty(t, f.Items())
		assert.Zero(t, f.UnreadCount())
		assert.Zero(t, sub.calls)
	})

	t.Run("loads page and derives unread count", func(t *testing.T) {
		userID := uuid.New()
		page := []domain.Notification{
			makeNotification(userID, false, time.Minute),
			makeNotification(userID, true, time.Hour),
			makeNotification(userID, false, 2*time.Hour),
		}
		store := feedStoreMock{
			getByUserIDFn: func(_ context.Context, gotUser uuid.UUID, limit int) ([]domain.Notification, error) {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, FeedPageSize, limit)
				return page, nil
			},
		}
		sub := &fakeSubscriber{}
		f := newTestFeed(store, sub)

		f.Initialize(context.Background(), userID)

		assert.False(t, f.IsLoading())
		assert.Len(t, f.Items(), 3)
		assert.Equal(t, 2, f.UnreadCount())
		assert.Equal(t, 1, sub.calls)
	})

	t.Run("fetch failure is swallowed, subscription still opens", func(t *testing.T) {
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				return nil, errors.New("network down")
			},
		}
		sub := &fakeSubscriber{}
		f := newTestFeed(store, sub)

		f.Initialize(context.Background(), uuid.New())

		assert.False(t, f.IsLoading())
		assert.Empty(t, f.Items())
		assert.Zero(t, f.UnreadCount())
		assert.Equal(t, 1, sub.calls)
	})
}

func TestFeed_Close_ReleasesSubscription(t *testing.T) {
	userID := uuid.New()
	store := feedStoreMock{
		getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
			return nil, nil
		},
	}
	sub := &fakeSubscriber{}
	f := newTestFeed(store, sub)

	f.Initialize(context.Background(), userID)
	require.False(t, sub.isClosed())

	f.Close()
	assert.True(t, sub.isClosed())

	// Inserts after close are discarded.
	sub.handler(makeNotification(userID, false, 0))
	assert.Empty(t, f.Items())
	assert.Zero(t, f.UnreadCount())
}

func TestFeed_Insert(t *testing.T) {
	userID := uuid.New()
	newFeedWithPage := func(page []domain.Notification) (*Feed, *fakeSubscriber) {
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				return page, nil
			},
		}
		sub := &fakeSubscriber{}
		f := newTestFeed(store, sub)
		f.Initialize(context.Background(), userID)
		return f, sub
	}

	t.Run("prepends unread and increments count", func(t *testing.T) {
		f, sub := newFeedWithPage([]domain.Notification{makeNotification(userID, true, time.Hour)})

		n := makeNotification(userID, false, 0)
		sub.handler(n)

		items := f.Items()
		require.Len(t, items, 2)
		assert.Equal(t, n.ID, items[0].ID)
		assert.Equal(t, 1, f.UnreadCount())
	})

	t.Run("duplicate ids are dropped", func(t *testing.T) {
		f, sub := newFeedWithPage(nil)

		n := makeNotification(userID, false, 0)
		sub.handler(n)
		sub.handler(n)

		assert.Len(t, f.Items(), 1)
		assert.Equal(t, 1, f.UnreadCount())
	})

	t.Run("working set stays bounded and newest-first", func(t *testing.T) {
		page := make([]domain.Notification, FeedPageSize)
		for i := range page {
			page[i] = makeNotification(userID, true, time.Duration(i+1)*time.Hour)
		}
		f, sub := newFeedWithPage(page)

		n := makeNotification(userID, false, 0)
		sub.handler(n)

		items := f.Items()
		require.Len(t, items, FeedPageSize)
		assert.Equal(t, n.ID, items[0].ID)
		for i := 1; i < len(items); i++ {
			assert.False(t, items[i].CreatedAt.After(items[i-1].CreatedAt), "items must stay newest-first")
		}
	})

	t.Run("evicting an unread tail keeps the count consistent", func(t *testing.T) {
		page := make([]domain.Notification, FeedPageSize)
		for i := range page {
			page[i] = makeNotification(userID, true, time.Duration(i+1)*time.Hour)
		}
		// The oldest item is unread and will be evicted by the insert.
		page[FeedPageSize-1].IsRead = false
		f, sub := newFeedWithPage(page)
		require.Equal(t, 1, f.UnreadCount())

		sub.handler(makeNotification(userID, false, 0))

		items := f.Items()
		require.Len(t, items, FeedPageSize)
		unread := 0
		for _, n := range items {
			if !n.IsRead {
				unread++
			}
		}
		assert.Equal(t, 1, unread)
		assert.Equal(t, unread, f.UnreadCount())
	})
}

func TestFeed_MarkRead(t *testing.T) {
	userID := uuid.New()

	t.Run("optimistic flip persists once and is idempotent", func(t *testing.T) {
		target := makeNotification(userID, false, time.Minute)
		persisted := 0
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				return []domain.Notification{target}, nil
			},
			markAsReadFn: func(_ context.Context, id, gotUser uuid.UUID) error {
				assert.Equal(t, target.ID, id)
				assert.Equal(t, userID, gotUser)
				persisted++
				return nil
			},
		}
		f := newTestFeed(store, &fakeSubscriber{})
		f.Initialize(context.Background(), userID)

		f.MarkRead(context.Background(), target.ID)
		f.MarkRead(context.Background(), target.ID)

		assert.True(t, f.Items()[0].IsRead)
		assert.Zero(t, f.UnreadCount())
		assert.Equal(t, 1, persisted, "second call must be a local no-op")
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				return []domain.Notification{makeNotification(userID, false, time.Minute)}, nil
			},
			markAsReadFn: func(context.Context, uuid.UUID, uuid.UUID) error {
				t.Fatal("must not persist a miss")
				return nil
			},
		}
		f := newTestFeed(store, &fakeSubscriber{})
		f.Initialize(context.Background(), userID)

		f.MarkRead(context.Background(), uuid.New())
		assert.Equal(t, 1, f.UnreadCount())
	})

	t.Run("persistence failure reconciles via reload", func(t *testing.T) {
		target := makeNotification(userID, false, time.Minute)
		fetches := 0
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				fetches++
				return []domain.Notification{target}, nil
			},
			markAsReadFn: func(context.Context, uuid.UUID, uuid.UUID) error {
				return errors.New("write failed")
			},
		}
		f := newTestFeed(store, &fakeSubscriber{})
		f.Initialize(context.Background(), userID)

		f.MarkRead(context.Background(), target.ID)

		// The reload restored the store's view: still unread.
		assert.Equal(t, 2, fetches)
		assert.False(t, f.Items()[0].IsRead)
		assert.Equal(t, 1, f.UnreadCount())
	})
}

func TestFeed_MarkAllRead(t *testing.T) {
	userID := uuid.New()

	t.Run("no-op when nothing is unread", func(t *testing.T) {
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				return []domain.Notification{makeNotification(userID, true, time.Minute)}, nil
			},
			markManyAsReadFn: func(context.Context, []uuid.UUID, uuid.UUID) error {
				t.Fatal("must not persist an empty set")
				return nil
			},
		}
		f := newTestFeed(store, &fakeSubscriber{})
		f.Initialize(context.Background(), userID)

		f.MarkAllRead(context.Background())
		assert.Zero(t, f.UnreadCount())
	})

	t.Run("flips exactly the captured snapshot", func(t *testing.T) {
		a := makeNotification(userID, false, 2*time.Minute)
		b := makeNotification(userID, false, time.Minute)
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				return []domain.Notification{b, a}, nil
			},
		}
		sub := &fakeSubscriber{}
		f := newTestFeed(store, sub)
		f.Initialize(context.Background(), userID)

		late := makeNotification(userID, false, 0)
		store2 := store
		store2.markManyAsReadFn = func(_ context.Context, ids []uuid.UUID, gotUser uuid.UUID) error {
			assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, ids)
			assert.Equal(t, userID, gotUser)
			// A fresh insert lands after the id set was captured but
			// before persistence confirms.
			sub.handler(late)
			return nil
		}
		f.store = store2

		f.MarkAllRead(context.Background())

		items := f.Items()
		require.Len(t, items, 3)
		byID := map[uuid.UUID]bool{}
		for _, n := range items {
			byID[n.ID] = n.IsRead
		}
		assert.True(t, byID[a.ID])
		assert.True(t, byID[b.ID])
		assert.False(t, byID[late.ID], "the late arrival must stay unread")
		assert.Equal(t, 1, f.UnreadCount())
	})

	t.Run("persistence failure keeps local state", func(t *testing.T) {
		a := makeNotification(userID, false, time.Minute)
		store := feedStoreMock{
			getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
				return []domain.Notification{a}, nil
			},
			markManyAsReadFn: func(context.Context, []uuid.UUID, uuid.UUID) error {
				return errors.New("write failed")
			},
		}
		f := newTestFeed(store, &fakeSubscriber{})
		f.Initialize(context.Background(), userID)

		f.MarkAllRead(context.Background())

		assert.False(t, f.Items()[0].IsRead)
		assert.Equal(t, 1, f.UnreadCount())
	})
}

func TestFeed_Select(t *testing.T) {
	userID := uuid.New()
	target := makeNotification(userID, false, time.Minute)
	marked := make(chan uuid.UUID, 1)
	store := feedStoreMock{
		getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
			return []domain.Notification{target}, nil
		},
		markAsReadFn: func(_ context.Context, id, _ uuid.UUID) error {
			marked <- id
			return nil
		},
	}
	f := newTestFeed(store, &fakeSubscriber{})
	f.Initialize(context.Background(), userID)
	require.True(t, f.Toggle())

	route := f.Select(target)

	assert.Equal(t, "/partner/appointments", route)
	assert.False(t, f.IsOpen())
	select {
	case id := <-marked:
		assert.Equal(t, target.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("expected fire-and-forget mark read")
	}

	t.Run("unknown type navigates nowhere", func(t *testing.T) {
		n := makeNotification(userID, true, time.Minute)
		n.Type = "mystery"
		assert.Equal(t, "", f.Select(n))
	})
}

// Unread count invariant: after an arbitrary operation mix the counter
// always equals the number of unread items in the working set.
func TestFeed_UnreadCountInvariant(t *testing.T) {
	userID := uuid.New()
	page := []domain.Notification{
		makeNotification(userID, false, 3*time.Minute),
		makeNotification(userID, true, 2*time.Minute),
	}
	store := feedStoreMock{
		getByUserIDFn: func(context.Context, uuid.UUID, int) ([]domain.Notification, error) {
			return page, nil
		},
		markAsReadFn:     func(context.Context, uuid.UUID, uuid.UUID) error { return nil },
		markManyAsReadFn: func(context.Context, []uuid.UUID, uuid.UUID) error { return nil },
	}
	sub := &fakeSubscriber{}
	f := newTestFeed(store, sub)
	f.Initialize(context.Background(), userID)

	check := func() {
		t.Helper()
		count := 0
		for _, n := range f.Items() {
			if !n.IsRead {
				count++
			}
		}
		assert.Equal(t, count, f.UnreadCount())
		assert.GreaterOrEqual(t, f.UnreadCount(), 0)
	}

	check()
	sub.handler(makeNotification(userID, false, 0))
	check()
	f.MarkRead(context.Background(), page[0].ID)
	check()
	f.MarkRead(context.Background(), page[0].ID)
	check()
	f.MarkAllRead(context.Background())
	check()
	sub.handler(makeNotification(userID, false, 0))
	check()
}
