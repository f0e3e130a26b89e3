// ABOUTME: In-memory fakes for the core's store, assistant, and sender collaborators
// ABOUTME: Each fake records calls so tests can assert exact side effects
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fitai/intake-bot/internal/assistant"
	"github.com/fitai/intake-bot/internal/models"
	"github.com/fitai/intake-bot/internal/util"
	"github.com/rs/zerolog"
)

var testPoll = util.PollConfig{Interval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

// fakeStore keeps users and sessions in memory
type fakeStore struct {
	mu        sync.Mutex
	users     map[string]*models.Profile
	sessions  []*models.Session
	seq       int
	upserts   int
	upsertErr error
	loadErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*models.Profile{}}
}

func (s *fakeStore) UpsertUser(_ context.Context, p *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s.upserts++

	stored := *p
	if existing, ok := s.users[p.ExternalID]; ok {
		stored.ID = existing.ID
	} else {
		s.seq++
		stored.ID = fmt.Sprintf("user-%d", s.seq)
	}
	s.users[p.ExternalID] = &stored
	out := stored
	return &out, nil
}

func (s *fakeStore) GetUserByExternalID(_ context.Context, externalID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	p, ok := s.users[externalID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (s *fakeStore) InsertSession(_ context.Context, session *models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	stored := *session
	stored.ID = fmt.Sprintf("session-%d", s.seq)
	s.sessions = append(s.sessions, &stored)
	out := stored
	return &out, nil
}

func (s *fakeStore) LatestSession(_ context.Context, userID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sessions) - 1; i >= 0; i-- {
		if s.sessions[i].UserID == userID {
			out := *s.sessions[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) UpdateSessionState(_ context.Context, id string, state models.SessionState) error {
	return s.update(id, func(session *models.Session) { session.State = state })
}

func (s *fakeStore) UpdateSessionThread(_ context.Context, id, threadID string) error {
	return s.update(id, func(session *models.Session) { session.ThreadID = threadID })
}

func (s *fakeStore) update(id string, fn func(*models.Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.ID == id {
			fn(session)
			return nil
		}
	}
	return fmt.Errorf("session %s not found", id)
}

func (s *fakeStore) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *fakeStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

// fakeAssistant scripts the remote thread/run/message API
type fakeAssistant struct {
	mu sync.Mutex

	threads     int
	posted      map[string][]string
	runsStarted int
	getRunCalls int

	createErr   error
	postErr     map[string]error // by thread id
	startErr    error
	listedRuns  []assistant.Run
	runStatuses []assistant.RunStatus // successive GetRun results; last one repeats
	messages    []assistant.Message   // nil means one default assistant reply
}

func newFakeAssistant() *fakeAssistant {
	return &fakeAssistant{posted: map[string][]string{}, postErr: map[string]error{}}
}

func (a *fakeAssistant) CreateThread(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return "", a.createErr
	}
	a.threads++
	return fmt.Sprintf("thread_%d", a.threads), nil
}

func (a *fakeAssistant) PostMessage(_ context.Context, threadID, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.postErr[threadID]; err != nil {
		return err
	}
	a.posted[threadID] = append(a.posted[threadID], text)
	return nil
}

func (a *fakeAssistant) StartRun(context.Context, string) (assistant.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.startErr != nil {
		return assistant.Run{}, a.startErr
	}
	a.runsStarted++
	return assistant.Run{ID: fmt.Sprintf("run_%d", a.runsStarted), Status: assistant.RunQueued}, nil
}

func (a *fakeAssistant) GetRun(_ context.Context, _, runID string) (assistant.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	status := assistant.RunCompleted
	if n := len(a.runStatuses); n > 0 {
		i := a.getRunCalls
		if i >= n {
			i = n - 1
		}
		status = a.runStatuses[i]
	}
	a.getRunCalls++
	return assistant.Run{ID: runID, Status: status}, nil
}

func (a *fakeAssistant) ListRuns(_ context.Context, _ string, limit int) ([]assistant.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.listedRuns) > limit {
		return a.listedRuns[:limit], nil
	}
	return a.listedRuns, nil
}

func (a *fakeAssistant) ListMessages(context.Context, string) ([]assistant.Message, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.messages == nil {
		return []assistant.Message{{ID: "msg_1", Role: assistant.RoleAssistant, Text: "Welcome to FitAI!"}}, nil
	}
	return a.messages, nil
}

func (a *fakeAssistant) postedTo(threadID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.posted[threadID]...)
}

func (a *fakeAssistant) totalPosted() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, texts := range a.posted {
		n += len(texts)
	}
	return n
}

// sent is one outbound message captured by fakeSender
type sent struct {
	ChatID string
	Text   string
	Format Format
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (s *fakeSender) SendText(_ context.Context, chatID, text string, format Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, sent{ChatID: chatID, Text: text, Format: format})
	return nil
}

func (s *fakeSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.Text)
	}
	return out
}

func (s *fakeSender) last() sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return sent{}
	}
	return s.msgs[len(s.msgs)-1]
}

func (s *fakeSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}

func completeProfile(externalID string) *models.Profile {
	return &models.Profile{
		ExternalID:  externalID,
		DisplayName: "Sam Lee",
		Contact:     "sam@example.com",
		Age:         30,
		Weight:      70.5,
		Height:      175,
	}
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
