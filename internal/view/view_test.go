package view

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/src-portal/internal/authz"
	"github.com/iliyamo/src-portal/internal/model"
)

func TestNewParsesAllPages(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	for _, p := range []string{"login", "dashboard", "budgets", "chat", "admin_users", "error"} {
		assert.True(t, r.Has(p), p)
	}
	assert.False(t, r.Has("layout"))
}

func TestRenderEscapesAndShowsFlashes(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	u := &model.User{Username: "<b>ama</b>", Role: model.RoleSuperAdmin}
	var buf bytes.Buffer
	err = r.Render(&buf, "dashboard", Page{
		Title:   "Dashboard",
		User:    u,
		Caps:    authz.Compute(*u),
		Flashes: []Flash{{Kind: "error", Message: "You don't have permission to access that page."}},
		Data:    struct{ Unread int }{Unread: 2},
	}, nil)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "&lt;b&gt;ama&lt;/b&gt;")
	assert.Contains(t, out, "flash-error")
	assert.Contains(t, out, "/admin/users")
	assert.Contains(t, out, "2 unread")
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, "nope", Page{}, nil))
}
