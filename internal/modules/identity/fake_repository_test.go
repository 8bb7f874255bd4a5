package identity

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/quietriver/insighthub/internal/notification"
)

// fakeRepository is an in-memory Repository that enforces the same uniqueness
// rules as the Postgres schema, reporting violations as pgconn errors so
// IsUniqueViolation sees them.
type fakeRepository struct {
	mu sync.Mutex

	users    map[string]*User    // by id
	profiles map[string]*Profile // by id
	accounts map[string]*Account // by id
	sessions map[string]*Session // by token
	tokens   map[string]*VerificationToken
	states   map[string]*OAuthState
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:    make(map[string]*User),
		profiles: make(map[string]*Profile),
		accounts: make(map[string]*Account),
		sessions: make(map[string]*Session),
		tokens:   make(map[string]*VerificationToken),
		states:   make(map[string]*OAuthState),
	}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

func copyUser(u *User) *User { cp := *u; return &cp }

func copyProfile(p *Profile) *Profile { cp := *p; return &cp }

// --- Users ---

func (f *fakeRepository) CreateUser(_ context.Context, user *User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email || u.Username == user.Username {
			return uniqueViolation()
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	f.users[user.ID] = copyUser(user)
	return nil
}

func (f *fakeRepository) FindUserByID(_ context.Context, id string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return copyUser(u), nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) FindUserByEmail(_ context.Context, email string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) FindUserByUsername(_ context.Context, username string) (*User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) UpdateUserPartial(_ context.Context, id string, patch UserPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrNotFound
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Name != nil {
		u.Name = patch.Name
	}
	if patch.Image != nil {
		u.Image = patch.Image
	}
	if patch.EmailVerified != nil {
		u.EmailVerified = patch.EmailVerified
	}
	return nil
}

func (f *fakeRepository) UpdateUserPassword(_ context.Context, userID, hashedPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.HashedPassword = &hashedPassword
	return nil
}

func (f *fakeRepository) UpdateUserUsername(_ context.Context, userID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range f.users {
		if id != userID && other.Username == username {
			return uniqueViolation()
		}
	}
	u.Username = username
	return nil
}

func (f *fakeRepository) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return ErrNotFound
	}
	delete(f.users, id)
	return nil
}

// --- Profiles ---

func (f *fakeRepository) CreateProfile(_ context.Context, profile *Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.UserID == profile.UserID || p.Username == profile.Username {
			return uniqueViolation()
		}
	}
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	f.profiles[profile.ID] = copyProfile(profile)
	return nil
}

func (f *fakeRepository) FindProfileByUserID(_ context.Context, userID string) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.UserID == userID {
			return copyProfile(p), nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) FindProfileByUsername(_ context.Context, username string) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.Username == username {
			return copyProfile(p), nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) UpdateProfile(_ context.Context, userID string, patch ProfilePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.UserID == userID {
			if patch.Bio != nil {
				p.Bio = patch.Bio
			}
			if patch.AvatarURL != nil {
				p.AvatarURL = patch.AvatarURL
			}
			p.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepository) UpdateProfileUsername(_ context.Context, userID, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.UserID != userID && p.Username == username {
			return uniqueViolation()
		}
	}
	for _, p := range f.profiles {
		if p.UserID == userID {
			p.Username = username
			p.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrNotFound
}

// --- Accounts ---

func (f *fakeRepository) CreateAccount(_ context.Context, account *Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Provider == account.Provider && a.ProviderAccountID == account.ProviderAccountID {
			return uniqueViolation()
		}
	}
	cp := *account
	f.accounts[account.ID] = &cp
	return nil
}

func (f *fakeRepository) FindAccount(_ context.Context, provider, providerAccountID string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Provider == provider && a.ProviderAccountID == providerAccountID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) DeleteAccount(_ context.Context, provider, providerAccountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.accounts {
		if a.Provider == provider && a.ProviderAccountID == providerAccountID {
			delete(f.accounts, id)
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeRepository) DeleteAccountsByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range f.accounts {
		if a.UserID == userID {
			delete(f.accounts, id)
		}
	}
	return nil
}

// --- Sessions ---

func (f *fakeRepository) CreateSession(_ context.Context, session *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[session.SessionToken]; ok {
		return uniqueViolation()
	}
	cp := *session
	f.sessions[session.SessionToken] = &cp
	return nil
}

func (f *fakeRepository) FindSessionByToken(_ context.Context, sessionToken string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionToken]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) UpdateSessionExpiry(_ context.Context, sessionToken string, expires time.Time) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionToken]
	if !ok {
		return nil, ErrNotFound
	}
	s.Expires = expires
	cp := *s
	return &cp, nil
}

func (f *fakeRepository) DeleteSessionByToken(_ context.Context, sessionToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionToken]; !ok {
		return ErrNotFound
	}
	delete(f.sessions, sessionToken)
	return nil
}

func (f *fakeRepository) DeleteSessionsByUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for token, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, token)
		}
	}
	return nil
}

// --- Verification tokens ---

func (f *fakeRepository) CreateVerificationToken(_ context.Context, token *VerificationToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.Identifier == token.Identifier && t.Purpose == token.Purpose {
			return uniqueViolation()
		}
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	cp := *token
	f.tokens[token.Token] = &cp
	return nil
}

func (f *fakeRepository) DeleteVerificationTokens(_ context.Context, identifier string, purpose TokenPurpose) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, t := range f.tokens {
		if t.Identifier == identifier && t.Purpose == purpose {
			delete(f.tokens, key)
		}
	}
	return nil
}

func (f *fakeRepository) ConsumeVerificationToken(_ context.Context, token string) (*VerificationToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	delete(f.tokens, token)
	cp := *t
	return &cp, nil
}

// --- OAuth states ---

func (f *fakeRepository) InsertOAuthState(_ context.Context, state *OAuthState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *state
	f.states[state.State] = &cp
	return nil
}

func (f *fakeRepository) GetOAuthStateByState(_ context.Context, state string) (*OAuthState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.states[state]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (f *fakeRepository) DeleteOAuthState(_ context.Context, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.states[state]; !ok {
		return ErrNotFound
	}
	delete(f.states, state)
	return nil
}

func (f *fakeRepository) DeleteExpiredOAuthStates(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	for key, s := range f.states {
		if now.After(s.ExpiresAt) {
			delete(f.states, key)
		}
	}
	return nil
}

// fakeNotifier records notifications instead of delivering them.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) last() *notification.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return &f.sent[len(f.sent)-1]
}
