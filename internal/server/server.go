package server

import (
	"sync"

	"github.com/npezzotti/go-curio/internal/auth"
	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/stats"
	"github.com/npezzotti/go-curio/internal/store"
	"github.com/npezzotti/go-curio/internal/types"
	"go.uber.org/zap"
)

// EventSource publishes auth events.
type EventSource interface {
	Subscribe(h auth.Handler) func()
}

type authEvent struct {
	event auth.Event
	sess  types.Session
}

// ViewServer tracks the open view sessions of every user and ends them
// when the user signs out.
type ViewServer struct {
	log            *zap.Logger
	adapter        store.Adapter
	guard          guard.Guard
	stats          stats.StatsProvider
	viewers        map[string]map[*Viewer]struct{}
	viewersLock    sync.RWMutex
	registerChan   chan *Viewer
	deRegisterChan chan *Viewer
	authChan       chan authEvent
	unsubscribe    func()
	stop           chan struct{}
	done           chan struct{}
}

func NewViewServer(logger *zap.Logger, a store.Adapter, g guard.Guard, sp stats.StatsProvider) *ViewServer {
	return &ViewServer{
		log:            logger,
		adapter:        a,
		guard:          g,
		stats:          sp,
		viewers:        make(map[string]map[*Viewer]struct{}),
		registerChan:   make(chan *Viewer),
		deRegisterChan: make(chan *Viewer),
		authChan:       make(chan authEvent, 64),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Subscribe starts listening to src. Events are handled on the Run loop.
func (vs *ViewServer) Subscribe(src EventSource) {
	vs.unsubscribe = src.Subscribe(func(event auth.Event, sess *types.Session) {
		if sess == nil {
			return
		}
		select {
		case vs.authChan <- authEvent{event: event, sess: *sess}:
		case <-vs.done:
		}
	})
}

func (vs *ViewServer) Run() {
	for {
		select {
		case v := <-vs.registerChan:
			vs.log.Debug("adding viewer", zap.String("user_id", v.sess.UserId))
			vs.addViewer(v)
			vs.stats.Incr(stats.ActiveViewers)
			vs.stats.Incr(stats.TotalViewers)
		case v := <-vs.deRegisterChan:
			if vs.removeViewer(v) {
				vs.log.Debug("removing viewer", zap.String("user_id", v.sess.UserId))
				vs.stats.Decr(stats.ActiveViewers)
			}
		case e := <-vs.authChan:
			vs.handleAuthEvent(e)
		case <-vs.stop:
			vs.log.Info("shutting down view sessions")
			vs.viewersLock.RLock()
			for _, set := range vs.viewers {
				for v := range set {
					v.stopViewer()
				}
			}
			vs.viewersLock.RUnlock()

			if vs.unsubscribe != nil {
				vs.unsubscribe()
			}
			close(vs.done)
			return
		}
	}
}

func (vs *ViewServer) handleAuthEvent(e authEvent) {
	switch e.event {
	case auth.SignedOut:
		viewers := vs.userViewers(e.sess.UserId)
		vs.log.Info("ending view sessions after sign out",
			zap.String("user_id", e.sess.UserId),
			zap.Int("viewers", len(viewers)),
		)
		for _, v := range viewers {
			v.queueMessage(sessionEnded("signed out"))
			v.stopViewer()
		}
	case auth.TokenRefreshed:
		for _, v := range vs.userViewers(e.sess.UserId) {
			v.setExpiry(e.sess.ExpiresAt)
		}
	}
}

// Register adds v to the server. It reports false if the server has shut
// down.
func (vs *ViewServer) Register(v *Viewer) bool {
	select {
	case vs.registerChan <- v:
		return true
	case <-vs.done:
		return false
	}
}

func (vs *ViewServer) deregister(v *Viewer) {
	select {
	case vs.deRegisterChan <- v:
	case <-vs.done:
	}
}

func (vs *ViewServer) addViewer(v *Viewer) {
	vs.viewersLock.Lock()
	defer vs.viewersLock.Unlock()

	set, ok := vs.viewers[v.sess.UserId]
	if !ok {
		set = make(map[*Viewer]struct{})
		vs.viewers[v.sess.UserId] = set
	}
	set[v] = struct{}{}
}

func (vs *ViewServer) removeViewer(v *Viewer) bool {
	vs.viewersLock.Lock()
	defer vs.viewersLock.Unlock()

	set, ok := vs.viewers[v.sess.UserId]
	if !ok {
		return false
	}
	if _, ok := set[v]; !ok {
		return false
	}

	delete(set, v)
	if len(set) == 0 {
		delete(vs.viewers, v.sess.UserId)
	}
	return true
}

func (vs *ViewServer) userViewers(userId string) []*Viewer {
	vs.viewersLock.RLock()
	defer vs.viewersLock.RUnlock()

	viewers := make([]*Viewer, 0, len(vs.viewers[userId]))
	for v := range vs.viewers[userId] {
		viewers = append(viewers, v)
	}
	return viewers
}

// ViewerCount returns the number of open view sessions for userId.
func (vs *ViewServer) ViewerCount(userId string) int {
	vs.viewersLock.RLock()
	defer vs.viewersLock.RUnlock()

	return len(vs.viewers[userId])
}

func (vs *ViewServer) Shutdown() {
	vs.log.Info("received shutdown signal")
	close(vs.stop)
	<-vs.done
}
