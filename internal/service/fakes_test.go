package service

import (
	"context"
	"sync"

	"account-service/internal/models"
	"account-service/internal/repository/scylla"
)

// fakeUserRepo is an in-memory scylla.UserRepository for service tests.
type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[string]*models.User
	emails  map[string]string
	mobiles map[string]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]*models.User),
		emails:  make(map[string]string),
		mobiles: make(map[string]string),
	}
}

func (r *fakeUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.emails[user.Email]; ok {
		return scylla.ErrEmailTaken
	}
	if _, ok := r.mobiles[user.Mobile]; ok {
		return scylla.ErrMobileTaken
	}
	copied := *user
	r.users[user.UserID] = &copied
	r.emails[user.Email] = user.UserID
	r.mobiles[user.Mobile] = user.UserID
	return nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.emails[email]
	if !ok {
		return nil, scylla.ErrNotFound
	}
	copied := *r.users[userID]
	return &copied, nil
}

func (r *fakeUserRepo) IsEmailTaken(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.emails[email]
	return ok, nil
}

func (r *fakeUserRepo) IsMobileTaken(_ context.Context, mobile string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.mobiles[mobile]
	return ok, nil
}

func (r *fakeUserRepo) SaveUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.UserID]; !ok {
		return scylla.ErrNotFound
	}
	copied := *user
	r.users[user.UserID] = &copied
	return nil
}

func (r *fakeUserRepo) ChangeEmail(_ context.Context, user *models.User, newEmail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.emails[newEmail]; ok && owner != user.UserID {
		return scylla.ErrEmailTaken
	}
	delete(r.emails, user.Email)
	r.emails[newEmail] = user.UserID
	user.Email = newEmail
	user.IsEmailVerified = false
	copied := *user
	r.users[user.UserID] = &copied
	return nil
}

func (r *fakeUserRepo) ChangeMobile(_ context.Context, user *models.User, newMobile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.mobiles[newMobile]; ok && owner != user.UserID {
		return scylla.ErrMobileTaken
	}
	delete(r.mobiles, user.Mobile)
	r.mobiles[newMobile] = user.UserID
	user.Mobile = newMobile
	copied := *user
	r.users[user.UserID] = &copied
	return nil
}

func (r *fakeUserRepo) HealthCheck(context.Context) error { return nil }

// fakeTokenRepo is an in-memory scylla.TokenRepository keyed by the signed
// token string.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.Token
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*models.Token)}
}

func (r *fakeTokenRepo) CreateToken(_ context.Context, token *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *token
	r.tokens[token.Token] = &copied
	return nil
}

func (r *fakeTokenRepo) GetToken(_ context.Context, tokenString, purpose string) (*models.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenString]
	if !ok || token.Purpose != purpose || token.Blacklisted {
		return nil, scylla.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (r *fakeTokenRepo) DeleteToken(_ context.Context, token *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token.Token)
	return nil
}

func (r *fakeTokenRepo) DeleteByUserAndPurpose(_ context.Context, userID, purpose string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for key, token := range r.tokens {
		if token.UserID == userID && token.Purpose == purpose {
			delete(r.tokens, key)
			count++
		}
	}
	return count, nil
}

func (r *fakeTokenRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// countingRecorder collects events so flows can assert on the audit trail.
type countingRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *countingRecorder) Record(_ context.Context, _ string, eventType, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *countingRecorder) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == eventType {
			return true
		}
	}
	return false
}

// capturedMail is one message handed to the recordingNotifier.
type capturedMail struct {
	to      string
	subject string
	body    string
}

// recordingNotifier is an in-memory notifier.Notifier that keeps every
// message for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	mails []capturedMail
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mails = append(n.mails, capturedMail{to: to, subject: subject, body: body})
	return nil
}
