package hub

import (
	"fmt"
	"sort"
	"sync"
)

// Registry owns the live client table and the project index. Every
// project set in the index is non-empty and only holds ids present in
// the client table.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	projects map[string]map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[string]*Client),
		projects: make(map[string]map[string]struct{}),
	}
}

// Add inserts a client and indexes it under its project.
func (r *Registry) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, c.ID)
	}
	r.clients[c.ID] = c
	set, ok := r.projects[c.ProjectID]
	if !ok {
		set = make(map[string]struct{})
		r.projects[c.ProjectID] = set
	}
	set[c.ID] = struct{}{}
	return nil
}

// Remove deletes a client and drops its project entry once empty.
// Removing an unknown id is a no-op.
func (r *Registry) Remove(clientID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		return nil, false
	}
	delete(r.clients, clientID)
	if set, ok := r.projects[c.ProjectID]; ok {
		delete(set, clientID)
		if len(set) == 0 {
			delete(r.projects, c.ProjectID)
		}
	}
	return c, true
}

// Get returns the client with the given id.
func (r *Registry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	return c, ok
}

// ByProject returns the ids currently indexed under projectID.
func (r *Registry) ByProject(projectID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.projects[projectID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// All returns every registered client ordered by connection time.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ConnectedAt.Equal(all[j].ConnectedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].ConnectedAt.Before(all[j].ConnectedAt)
	})
	return all
}

// Projects returns the ids of projects with at least one client.
func (r *Registry) Projects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.projects))
	for id := range r.projects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
