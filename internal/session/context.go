package session

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/racesim/pkg/core"
)

// Context holds the session being recorded and its running leader
type Context struct {
	mu      sync.RWMutex
	Session *core.Session
	Leader  string
	Result  *core.SessionResult // last finished session
	active  bool
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Session: &core.Session{Track: "No track loaded"},
	}
}

// GetSession returns the current or last session
func (sc *Context) GetSession() *core.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Session
}

// GetLeader returns the driver leading the current session
func (sc *Context) GetLeader() string {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Leader
}

// GetResult returns the result of the last finished session, or nil
func (sc *Context) GetResult() *core.SessionResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Result
}

// Active reports whether a session is between start and end
func (sc *Context) Active() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.active
}

// Start makes s the current session
func (sc *Context) Start(s *core.Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Session = s
	sc.Leader = ""
	sc.active = true
}

// SetLeader records a new leader
func (sc *Context) SetLeader(driver string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Leader = driver
}

// End stores r and marks the session finished
func (sc *Context) End(r *core.SessionResult) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Result = r
	sc.active = false
}

// LogAttrs returns the attributes attached to every log record while a
// session runs. Use it as a logging.ContextProvider.
func (sc *Context) LogAttrs() []slog.Attr {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if !sc.active || sc.Session == nil {
		return nil
	}
	return []slog.Attr{
		slog.String("session", sc.Session.ID),
		slog.String("stage", sc.Session.Stage.String()),
		slog.String("track", sc.Session.Track),
	}
}
