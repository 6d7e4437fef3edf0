package server

import (
	"sync"

	"github.com/billed-fr/billed-server/internal/billstore"
	"github.com/billed-fr/billed-server/internal/domain/entity"
	"github.com/billed-fr/billed-server/internal/identity"
	"github.com/billed-fr/billed-server/internal/nav"
	"github.com/billed-fr/billed-server/internal/submission"
	"go.uber.org/zap"
)

// InlinePresenter records the inline form surface state so handlers can
// report it back to the client. Implements submission.FormPresenter.
type InlinePresenter struct {
	mu        sync.Mutex
	errorText string
	wasReset  bool
}

// ShowFileError records the inline message.
func (p *InlinePresenter) ShowFileError(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorText = text
}

// ClearFileError clears the inline message.
func (p *InlinePresenter) ClearFileError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorText = ""
}

// ResetFileInput marks the file input as emptied.
func (p *InlinePresenter) ResetFileInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wasReset = true
}

// ErrorText returns the currently displayed inline message.
func (p *InlinePresenter) ErrorText() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errorText
}

// formSession ties one live submission controller to its presenter and
// the last navigation it requested.
type formSession struct {
	controller *submission.Controller
	presenter  *InlinePresenter

	mu        sync.Mutex
	lastRoute string
}

func (s *formSession) navigate(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRoute = route
}

func (s *formSession) route() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRoute
}

// SessionManager holds one submission controller per signed-in user,
// created on first form interaction and torn down when the form is
// left.
type SessionManager struct {
	store   billstore.Store
	history *nav.History
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*formSession
}

// NewSessionManager creates an empty session manager.
func NewSessionManager(store billstore.Store, history *nav.History, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		store:    store,
		history:  history,
		logger:   logger,
		sessions: make(map[string]*formSession),
	}
}

// Get returns the user's form session, creating it if needed.
func (m *SessionManager) Get(user entity.User) *formSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[user.Email]; ok {
		return session
	}

	session := &formSession{presenter: &InlinePresenter{}}
	session.controller = submission.NewController(
		m.store,
		identity.Static{User: user},
		session.presenter,
		session.navigate,
		m.history,
		m.logger.With(zap.String("component", "submission")),
	)
	m.sessions[user.Email] = session
	return session
}

// Close tears down the user's form session, releasing its back
// navigation registration.
func (m *SessionManager) Close(email string) {
	m.mu.Lock()
	session, ok := m.sessions[email]
	delete(m.sessions, email)
	m.mu.Unlock()

	if ok {
		session.controller.Close()
	}
}
