package user

import (
	"sync"

	"go.uber.org/zap"
)

// BroadcastID is the reserved identity used as the receiver of messages
// addressed to every connected user.
const BroadcastID int64 = 0

// Endpoint is the live transport channel of a connected user. Implementations
// must be safe for concurrent use; Send never blocks on the remote peer.
type Endpoint interface {
	Send(event string, payload any) error
}

// Info is the presence view of a registered user.
type Info struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type entry struct {
	id       int64
	name     string
	endpoint Endpoint
}

// Registry maps user identities to their current transport endpoint. It is
// the source of truth for whether a user is currently reachable. Identities
// are client-supplied and not validated for authenticity.
type Registry struct {
	mu     sync.RWMutex
	users  map[int64]*entry
	order  []int64
	logger *zap.Logger
}

// NewRegistry creates a registry seeded with the reserved broadcast identity.
func NewRegistry(logger *zap.Logger) *Registry {
	r := &Registry{
		users:  make(map[int64]*entry),
		logger: logger,
	}
	r.Register(BroadcastID, "Broadcast", nil)
	return r
}

// Register inserts or replaces the entry for id. Last write wins: a
// reconnecting user replaces its endpoint wholesale, keeping its original
// position in the presence snapshot.
func (r *Registry) Register(id int64, name string, ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[id]; ok {
		existing.name = name
		existing.endpoint = ep
		r.logger.Debug("user endpoint replaced", zap.Int64("user_id", id))
		return
	}

	r.users[id] = &entry{id: id, name: name, endpoint: ep}
	r.order = append(r.order, id)
	r.logger.Info("user registered", zap.Int64("user_id", id), zap.String("name", name))
}

// Unregister removes the entry for id. Unregistering an unknown or already
// removed identity is a no-op.
func (r *Registry) Unregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return
	}
	delete(r.users, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info("user unregistered", zap.Int64("user_id", id))
}

// Resolve returns the live endpoint for id. Absence is a normal outcome:
// the user may simply be offline.
func (r *Registry) Resolve(id int64) (Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.users[id]
	if !ok || e.endpoint == nil {
		return nil, false
	}
	return e.endpoint, true
}

// Known reports whether id has a registry entry, reachable or not.
func (r *Registry) Known(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok
}

// Snapshot returns all registered users in insertion order.
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		if e, ok := r.users[id]; ok {
			users = append(users, Info{ID: e.id, Name: e.name})
		}
	}
	return users
}

// Endpoints returns the live endpoints of every registered user except the
// ones listed in exclude. Used for presence and chat broadcasts.
func (r *Registry) Endpoints(exclude ...int64) []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skip := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	eps := make([]Endpoint, 0, len(r.order))
	for _, id := range r.order {
		if skip[id] {
			continue
		}
		if e, ok := r.users[id]; ok && e.endpoint != nil {
			eps = append(eps, e.endpoint)
		}
	}
	return eps
}
