package handler

import (
    "context"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/src-portal/internal/authz"
    "github.com/iliyamo/src-portal/internal/guard"
    "github.com/iliyamo/src-portal/internal/logger"
    "github.com/iliyamo/src-portal/internal/middleware"
    "github.com/iliyamo/src-portal/internal/model"
    "github.com/iliyamo/src-portal/internal/repository"
    "github.com/iliyamo/src-portal/internal/session"
    "github.com/iliyamo/src-portal/internal/utils"
)

const testCost = 4 // bcrypt.MinCost

type fakeAuthUsers struct {
    byID    map[uint64]*model.User
    updated map[uint64]string
}

func newFakeAuthUsers() *fakeAuthUsers {
    return &fakeAuthUsers{byID: map[uint64]*model.User{}, updated: map[uint64]string{}}
}

func (f *fakeAuthUsers) add(t *testing.T, u model.User, password string) {
    t.Helper()
    hash, err := utils.HashPassword(password, testCost)
    require.NoError(t, err)
    u.PasswordHash = hash
    if u.Status == "" {
        u.Status = model.StatusActive
    }
    if u.PasswordUpdatedAt.IsZero() {
        u.PasswordUpdatedAt = time.Now().UTC()
    }
    f.byID[u.ID] = &u
}

func (f *fakeAuthUsers) GetByLogin(_ context.Context, login string) (model.User, error) {
    for _, u := range f.byID {
        if u.Username == login || u.Email == login {
            return *u, nil
        }
    }
    return model.User{}, repository.ErrNotFound
}

func (f *fakeAuthUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
    for _, u := range f.byID {
        if u.Email == email {
            return *u, nil
        }
    }
    return model.User{}, repository.ErrNotFound
}

func (f *fakeAuthUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
    if u, ok := f.byID[id]; ok {
        return *u, nil
    }
    return model.User{}, repository.ErrNotFound
}

func (f *fakeAuthUsers) UpdatePassword(_ context.Context, id uint64, hash string) error {
    u, ok := f.byID[id]
    if !ok {
        return repository.ErrNotFound
    }
    u.PasswordHash = hash
    u.IsDefaultPassword = false
    u.ForcePasswordChange = false
    f.updated[id] = hash
    return nil
}

type fakeResets struct {
    tokens  map[string]uint64
    revoked []uint64
}

func (f *fakeResets) Store(_ context.Context, userID uint64, hash string, _ time.Time) error {
    f.tokens[hash] = userID
    return nil
}

func (f *fakeResets) Consume(_ context.Context, hash string) (uint64, error) {
    id, ok := f.tokens[hash]
    if !ok {
        return 0, repository.ErrNotFound
    }
    delete(f.tokens, hash)
    return id, nil
}

func (f *fakeResets) RevokeAllForUser(_ context.Context, userID uint64) error {
    f.revoked = append(f.revoked, userID)
    return nil
}

type sentMail struct {
    to      model.User
    subject string
    body    string
}

type fakeMailer struct{ sent []sentMail }

func (f *fakeMailer) SendEmail(_ context.Context, u model.User, subject, body string) error {
    f.sent = append(f.sent, sentMail{to: u, subject: subject, body: body})
    return nil
}

type authFixture struct {
    e      *echo.Echo
    base   Base
    h      *AuthHandler
    users  *fakeAuthUsers
    store  *session.MemoryStore
    resets *fakeResets
    mail   *fakeMailer
}

func newAuthFixture(t *testing.T) *authFixture {
    t.Helper()
    e, base := newApp(t)
    f := &authFixture{
        e:      e,
        base:   base,
        users:  newFakeAuthUsers(),
        store:  session.NewMemoryStore(session.Options{}),
        resets: &fakeResets{tokens: map[string]uint64{}},
        mail:   &fakeMailer{},
    }
    f.h = &AuthHandler{
        Base:     base,
        Users:    f.users,
        Sessions: f.store,
        Resets:   f.resets,
        Mail:     f.mail,
        Opts: AuthOptions{
            BcryptCost:     testCost,
            PasswordMaxAge: 90 * 24 * time.Hour,
            ResetSecret:    "reset-secret",
            ResetTTL:       30 * time.Minute,
            BaseURL:        "https://src.test",
        },
    }
    e.Use(middleware.LoadSession(base.Cookies, f.store, authz.NewResolver(f.users), logger.Nop()))
    e.GET("/login", f.h.LoginForm)
    e.POST("/login", f.h.Login)
    e.POST("/logout", f.h.Logout)
    e.GET("/password/change", f.h.ChangeForm, middleware.Authenticated(base.Cookies)...)
    e.POST("/password/change", f.h.Change, middleware.Authenticated(base.Cookies)...)
    e.POST("/password/forgot", f.h.Forgot)
    e.GET("/password/reset", f.h.ResetForm)
    e.POST("/password/reset", f.h.Reset)
    return f
}

func (f *authFixture) login(login, password string) *httptest.ResponseRecorder {
    return send(f.e, http.MethodPost, "/login", url.Values{"login": {login}, "password": {password}})
}

func TestLoginSuccess(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "s100", Email: "s100@src.test", Role: model.RoleStudent}, "correct-horse")

    rec := f.login("s100", "correct-horse")
    assertRedirect(t, rec, guard.DefaultFallback)

    s, err := f.store.Get(context.Background(), tokenOf(t, f.base, rec))
    require.NoError(t, err)
    assert.Equal(t, uint64(1), s.UserID)
    assert.False(t, s.ForcePasswordChange)
    assert.False(t, s.PasswordExpired)
}

func TestLoginByEmail(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "s100", Email: "s100@src.test", Role: model.RoleStudent}, "correct-horse")
    assertRedirect(t, f.login("s100@src.test", "correct-horse"), guard.DefaultFallback)
}

func TestLoginFailures(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "s100", Role: model.RoleStudent}, "correct-horse")
    f.users.add(t, model.User{ID: 2, Username: "gone", Role: model.RoleStudent, Status: model.StatusDisabled}, "correct-horse")

    cases := []struct {
        name, login, password, flash string
    }{
        {"wrong password", "s100", "nope", msgBadLogin},
        {"unknown user", "nobody", "correct-horse", msgBadLogin},
        {"disabled", "gone", "correct-horse", msgDisabled},
        {"empty", "", "", "Enter your username"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec := f.login(tc.login, tc.password)
            assertRedirect(t, rec, guard.LoginPath)
            assertFlash(t, f.base, rec, middleware.FlashError, tc.flash)
            assert.Empty(t, tokenOf(t, f.base, rec))
        })
    }
}

func TestLoginCarriesPasswordState(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "forced", Role: model.RoleAdmin, ForcePasswordChange: true}, "correct-horse")
    f.users.add(t, model.User{ID: 2, Username: "old", Role: model.RoleAdmin,
        PasswordUpdatedAt: time.Now().UTC().AddDate(0, 0, -120)}, "correct-horse")
    f.users.add(t, model.User{ID: 3, Username: "fresh", Role: model.RoleMember, IsDefaultPassword: true}, "correct-horse")

    rec := f.login("forced", "correct-horse")
    assertRedirect(t, rec, guard.PasswordChangePath)
    s, err := f.store.Get(context.Background(), tokenOf(t, f.base, rec))
    require.NoError(t, err)
    assert.True(t, s.ForcePasswordChange)

    rec = f.login("old", "correct-horse")
    assertRedirect(t, rec, guard.PasswordChangePath)
    s, err = f.store.Get(context.Background(), tokenOf(t, f.base, rec))
    require.NoError(t, err)
    assert.True(t, s.PasswordExpired)

    assertRedirect(t, f.login("fresh", "correct-horse"), guard.PasswordChangePath)
}

func TestSecondLoginEndsFirstSession(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "s100", Role: model.RoleStudent}, "correct-horse")

    first := tokenOf(t, f.base, f.login("s100", "correct-horse"))
    second := tokenOf(t, f.base, f.login("s100", "correct-horse"))
    require.NotEqual(t, first, second)

    _, err := f.store.Get(context.Background(), first)
    assert.ErrorIs(t, err, session.ErrNotFound)
    _, err = f.store.Get(context.Background(), second)
    assert.NoError(t, err)
}

func TestLogoutDestroysSession(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "s100", Role: model.RoleStudent}, "correct-horse")
    rec := f.login("s100", "correct-horse")
    tok := tokenOf(t, f.base, rec)

    out := send(f.e, http.MethodPost, "/logout", nil, sessionCookie(rec))
    assertRedirect(t, out, guard.LoginPath)
    assert.Empty(t, tokenOf(t, f.base, out))
    _, err := f.store.Get(context.Background(), tok)
    assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestChangePassword(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "fresh", Role: model.RoleMember, IsDefaultPassword: true}, "temp-pass-1")
    ck := sessionCookie(f.login("fresh", "temp-pass-1"))

    // every other page is blocked until the change succeeds
    assert.Equal(t, http.StatusOK, send(f.e, http.MethodGet, "/password/change", nil, ck).Code)

    change := func(current, pw, confirm string) *httptest.ResponseRecorder {
        return send(f.e, http.MethodPost, "/password/change", url.Values{
            "current_password": {current}, "new_password": {pw}, "confirm_password": {confirm},
        }, ck)
    }

    rec := change("wrong", "brand-new-pass", "brand-new-pass")
    assertRedirect(t, rec, guard.PasswordChangePath)
    assertFlash(t, f.base, rec, middleware.FlashError, "current password is incorrect")

    rec = change("temp-pass-1", "short", "short")
    assertFlash(t, f.base, rec, middleware.FlashError, "at least 8")

    rec = change("temp-pass-1", "brand-new-pass", "brand-new-typo")
    assertFlash(t, f.base, rec, middleware.FlashError, "do not match")

    rec = change("temp-pass-1", "temp-pass-1", "temp-pass-1")
    assertFlash(t, f.base, rec, middleware.FlashError, "must differ")
    assert.Empty(t, f.users.updated)

    rec = change("temp-pass-1", "brand-new-pass", "brand-new-pass")
    assertRedirect(t, rec, guard.DefaultFallback)
    assertFlash(t, f.base, rec, middleware.FlashSuccess, "changed")
    require.Contains(t, f.users.updated, uint64(1))
    assert.True(t, utils.VerifyPassword(f.users.byID[1].PasswordHash, "brand-new-pass"))
    assert.False(t, f.users.byID[1].IsDefaultPassword)
}

func TestChangePasswordClearsSessionFlags(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "forced", Role: model.RoleAdmin, ForcePasswordChange: true}, "temp-pass-1")
    rec := f.login("forced", "temp-pass-1")
    tok := tokenOf(t, f.base, rec)

    out := send(f.e, http.MethodPost, "/password/change", url.Values{
        "current_password": {"temp-pass-1"}, "new_password": {"brand-new-pass"}, "confirm_password": {"brand-new-pass"},
    }, sessionCookie(rec))
    assertRedirect(t, out, guard.DefaultFallback)

    s, err := f.store.Get(context.Background(), tok)
    require.NoError(t, err)
    assert.False(t, s.ForcePasswordChange)
    assert.False(t, s.PasswordExpired)
}

func TestForgotSameReplyForUnknownEmail(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "s100", Email: "s100@src.test", Role: model.RoleStudent}, "correct-horse")

    known := send(f.e, http.MethodPost, "/password/forgot", url.Values{"email": {"s100@src.test"}})
    unknown := send(f.e, http.MethodPost, "/password/forgot", url.Values{"email": {"who@src.test"}})

    assertRedirect(t, known, guard.LoginPath)
    assertRedirect(t, unknown, guard.LoginPath)
    assert.Equal(t, flashes(t, f.base, known), flashes(t, f.base, unknown))

    require.Len(t, f.mail.sent, 1)
    assert.Equal(t, uint64(1), f.mail.sent[0].to.ID)
    assert.Contains(t, f.mail.sent[0].body, "https://src.test/password/reset?token=")
    assert.Len(t, f.resets.tokens, 1)
}

func TestResetPasswordSingleUse(t *testing.T) {
    f := newAuthFixture(t)
    f.users.add(t, model.User{ID: 1, Username: "s100", Email: "s100@src.test", Role: model.RoleStudent}, "correct-horse")
    live, err := f.store.Create(context.Background(), 1, model.SessionFlags{})
    require.NoError(t, err)

    send(f.e, http.MethodPost, "/password/forgot", url.Values{"email": {"s100@src.test"}})
    require.Len(t, f.mail.sent, 1)
    body := f.mail.sent[0].body
    link := body[strings.Index(body, "https://"):]
    u, err := url.Parse(strings.TrimSpace(link))
    require.NoError(t, err)
    token := u.Query().Get("token")

    assert.Equal(t, http.StatusOK, send(f.e, http.MethodGet, "/password/reset?token="+url.QueryEscape(token), nil).Code)

    reset := func() *httptest.ResponseRecorder {
        return send(f.e, http.MethodPost, "/password/reset", url.Values{
            "token": {token}, "new_password": {"after-reset-1"}, "confirm_password": {"after-reset-1"},
        })
    }
    rec := reset()
    assertRedirect(t, rec, guard.LoginPath)
    assertFlash(t, f.base, rec, middleware.FlashSuccess, "reset")
    assert.True(t, utils.VerifyPassword(f.users.byID[1].PasswordHash, "after-reset-1"))
    assert.Equal(t, []uint64{1}, f.resets.revoked)

    _, err = f.store.Get(context.Background(), live)
    assert.ErrorIs(t, err, session.ErrNotFound, "reset must end existing sessions")

    rec = reset()
    assertRedirect(t, rec, "/password/forgot")
    assertFlash(t, f.base, rec, middleware.FlashError, msgResetInvalid)
}

func TestResetRejectsForgedToken(t *testing.T) {
    f := newAuthFixture(t)
    rt, err := utils.NewResetToken("other-secret", 1, time.Minute)
    require.NoError(t, err)

    rec := send(f.e, http.MethodGet, "/password/reset?token="+url.QueryEscape(rt.Token), nil)
    assertRedirect(t, rec, "/password/forgot")
    assertFlash(t, f.base, rec, middleware.FlashError, msgResetInvalid)
}
