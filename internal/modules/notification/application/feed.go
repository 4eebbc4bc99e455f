package application

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/ishflow/ishflow-backend/internal/modules/notification/domain"
)

// FeedPageSize bounds the working set to the most recent notifications.
// The page is a cache of the true history, not the source of truth.
const FeedPageSize = 20

// FeedStore is the slice of the repository the feed needs.
type FeedStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkManyAsRead(ctx context.Context, notificationIDs []uuid.UUID, userID uuid.UUID) error
}

// Feed is one user's notification working set: a newest-first bounded page
// plus a derived unread count. Mark operations apply optimistically and
// reconcile against the store; store failures never escape the feed, the
// prior state simply stays visible.
//
// All state is guarded by a single mutex, which stands in for the
// single-threaded event loop the feed logically runs on: the insert
// handler, mark operations and reloads may arrive from independent
// goroutines but their mutations are serialized.
type Feed struct {
	store      FeedStore
	subscriber domain.Subscriber
	role       domain.Role

	mu      sync.Mutex
	userID  uuid.UUID
	items   []domain.Notification
	unread  int
	loading bool
	open    bool
	closed  bool
	sub     domain.Subscription
}

func NewFeed(store FeedStore, subscriber domain.Subscriber, role domain.Role) *Feed {
	return &Feed{
		store:      store,
		subscriber: subscriber,
		role:       role,
		loading:    true,
	}
}

// Initialize loads the bounded page for userID and opens the live
// subscription. With a nil userID the feed stays idle so it can exist
// before a session does. Fetch failures are swallowed: the feed comes up
// empty and waits for inserts.
func (f *Feed) Initialize(ctx context.Context, userID uuid.UUID) {
	if userID == uuid.Nil {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
		return
	}

	f.mu.Lock()
	f.userID = userID
	f.mu.Unlock()

	items, err := f.store.GetByUserID(ctx, userID, FeedPageSize)
	if err != nil {
		log.Printf("[Feed] initial fetch failed for user %s: %v", userID, err)
		items = nil
	}

	f.mu.Lock()
	if f.closed {
		// Torn down while the fetch was in flight; drop the late result.
		f.mu.Unlock()
		return
	}
	f.items = items
	f.unread = countUnread(items)
	f.loading = false
	f.mu.Unlock()

	sub, err := f.subscriber.Subscribe(ctx, userID, f.handleInsert)
	if err != nil {
		log.Printf("[Feed] subscribe failed for user %s: %v", userID, err)
		return
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		sub.Close()
		return
	}
	f.sub = sub
	f.mu.Unlock()
}

// Close releases the live subscription. Safe to call on every exit path,
// including before Initialize completed.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// handleInsert is the subscription callback. Inserts are prepended
// unread; duplicates by id are dropped so an at-least-once stream cannot
// double-count. The page is trimmed back to its bound.
func (f *Feed) handleInsert(n domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	for _, existing := range f.items {
		if existing.ID == n.ID {
			return
		}
	}

	f.items = append([]domain.Notification{n}, f.items...)
	if len(f.items) > FeedPageSize {
		// The evicted tail may itself be unread, so recount instead of
		// incrementing.
		f.items = f.items[:FeedPageSize]
		f.unread = countUnread(f.items)
		return
	}
	f.unread++
}

// MarkRead flips one item to read, optimistically, then persists. A miss
// or an already-read item is a no-op. On persistence failure the bounded
// page is reloaded so the local state converges back to the store instead
// of drifting.
func (f *Feed) MarkRead(ctx context.Context, id uuid.UUID) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	flipped := false
	for i := range f.items {
		if f.items[i].ID == id {
			if !f.items[i].IsRead {
				f.items[i].IsRead = true
				if f.unread > 0 {
					f.unread--
				}
				flipped = true
			}
			break
		}
	}
	userID := f.userID
	f.mu.Unlock()

	if !flipped {
		return
	}

	if err := f.store.MarkAsRead(ctx, id, userID); err != nil {
		log.Printf("[Feed] mark read failed for %s: %v", id, err)
		f.Reload(ctx)
	}
}

// MarkAllRead persists a read flip across exactly the ids that are unread
// at call time. Items inserted after the snapshot stay unread; the next
// fetch or mark catches them. Persistence failure leaves local state
// untouched.
func (f *Feed) MarkAllRead(ctx context.Context) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	var ids []uuid.UUID
	for _, n := range f.items {
		if !n.IsRead {
			ids = append(ids, n.ID)
		}
	}
	userID := f.userID
	f.mu.Unlock()

	if len(ids) == 0 {
		return
	}

	if err := f.store.MarkManyAsRead(ctx, ids, userID); err != nil {
		log.Printf("[Feed] mark all read failed for user %s: %v", userID, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	marked := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range f.items {
		if marked[f.items[i].ID] {
			f.items[i].IsRead = true
		}
	}
	f.unread = countUnread(f.items)
}

// Select is the click path: mark the item read without blocking on
// persistence, collapse the panel, and return the navigation target for
// the viewer's role. Unknown types navigate nowhere.
func (f *Feed) Select(n domain.Notification) string {
	if !n.IsRead {
		go f.MarkRead(context.Background(), n.ID)
	}

	f.mu.Lock()
	f.open = false
	f.mu.Unlock()

	return domain.Route(n.Type, f.role)
}

// Reload re-fetches the bounded page and recomputes the unread count.
// Used to reconcile after a failed mark and to repair gaps after a
// subscription reconnect. Fetch failure keeps the prior state.
func (f *Feed) Reload(ctx context.Context) {
	f.mu.Lock()
	if f.closed || f.userID == uuid.Nil {
		f.mu.Unlock()
		return
	}
	userID := f.userID
	f.mu.Unlock()

	items, err := f.store.GetByUserID(ctx, userID, FeedPageSize)
	if err != nil {
		log.Printf("[Feed] reload failed for user %s: %v", userID, err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.items = items
	f.unread = countUnread(items)
}

// Toggle flips the panel's visibility and reports the new state.
func (f *Feed) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = !f.open
	return f.open
}

// Items returns a copy of the current working set, newest first.
func (f *Feed) Items() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// UnreadCount returns the derived unread counter.
func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// IsLoading reports whether the initial fetch has completed.
func (f *Feed) IsLoading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

// IsOpen reports the panel's visibility.
func (f *Feed) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func countUnread(items []domain.Notification) int {
	count := 0
	for _, n := range items {
		if !n.IsRead {
			count++
		}
	}
	return count
}
