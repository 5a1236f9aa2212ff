// Package ws implements the realtime broadcast layer: a hub of WebSocket
// clients indexed by job-id rooms and by user id. Messages are fire-and-forget;
// if nobody is subscribed the broadcast is dropped.
package ws

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/metrics"
)

// Server event names.
const (
	EventJobUpdate           = "job_update"
	EventJobProgress         = "job_progress"
	EventDashboardStats      = "dashboard_stats"
	EventURLSubmissionUpdate = "url_submission_update"
)

// Envelope is the wire format for server-pushed events.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// HubStats is a snapshot of current connections.
type HubStats struct {
	Connections int      `json:"connections"`
	UserIDs     []string `json:"userIds"`
}

// Hub owns room and user membership. All maps are guarded by mu; there is no
// single event loop to rely on.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{} // job id -> subscribers
	users  map[string]map[*Client]struct{} // user id -> connections
	logger *zap.Logger

	// completedDelay postpones job_update broadcasts for completed jobs so a
	// client mid-reconnect still catches the final state.
	completedDelay time.Duration
}

// NewHub creates a hub. A completedDelay of zero disables the delayed
// completed-broadcast behavior (used in tests).
func NewHub(logger *zap.Logger, completedDelay time.Duration) *Hub {
	return &Hub{
		rooms:          make(map[string]map[*Client]struct{}),
		users:          make(map[string]map[*Client]struct{}),
		logger:         logger,
		completedDelay: completedDelay,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
	metrics.WSConnect()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for jobID := range c.jobs {
		if room := h.rooms[jobID]; room != nil {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, jobID)
			}
		}
	}
	if conns := h.users[c.userID]; conns != nil {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	}
	metrics.WSDisconnect()
}

func (h *Hub) subscribe(c *Client, jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[jobID] == nil {
		h.rooms[jobID] = make(map[*Client]struct{})
	}
	h.rooms[jobID][c] = struct{}{}
	c.jobs[jobID] = true
}

func (h *Hub) unsubscribe(c *Client, jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room := h.rooms[jobID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, jobID)
		}
	}
	delete(c.jobs, jobID)
}

// broadcastRoom sends an envelope to every subscriber of a job room.
func (h *Hub) broadcastRoom(jobID string, env Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[jobID] {
		c.trySend(env)
	}
}

// BroadcastJobUpdate pushes a job state change to its room. Completed
// updates are delayed to mitigate the reconnect race on job completion.
func (h *Hub) BroadcastJobUpdate(jobID, status string, payload any) {
	env := Envelope{Event: EventJobUpdate, Data: payload}
	if status == "completed" && h.completedDelay > 0 {
		time.AfterFunc(h.completedDelay, func() { h.broadcastRoom(jobID, env) })
		return
	}
	h.broadcastRoom(jobID, env)
}

// BroadcastJobProgress pushes submission progress to a job's room.
func (h *Hub) BroadcastJobProgress(jobID string, payload any) {
	h.broadcastRoom(jobID, Envelope{Event: EventJobProgress, Data: payload})
}

// BroadcastURLSubmission pushes a single URL submission result to a job's room.
func (h *Hub) BroadcastURLSubmission(jobID string, payload any) {
	h.broadcastRoom(jobID, Envelope{Event: EventURLSubmissionUpdate, Data: payload})
}

// BroadcastToUser sends an event to every connection tagged with the user id.
func (h *Hub) BroadcastToUser(userID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.users[userID] {
		c.trySend(Envelope{Event: event, Data: payload})
	}
}

// Stats returns the socket count and the de-duplicated set of connected
// user ids.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := HubStats{UserIDs: make([]string, 0, len(h.users))}
	for userID, conns := range h.users {
		stats.Connections += len(conns)
		stats.UserIDs = append(stats.UserIDs, userID)
	}
	return stats
}
