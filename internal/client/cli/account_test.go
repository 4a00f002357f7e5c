package cli

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mediax/internal/client/api"
	"github.com/dmitrijs2005/mediax/internal/client/gateway"
	"github.com/dmitrijs2005/mediax/internal/client/models"
	"github.com/dmitrijs2005/mediax/internal/client/session"
	"github.com/dmitrijs2005/mediax/internal/common"
)

var errRejected = &gateway.HTTPError{Status: http.StatusUnauthorized, Payload: gateway.ErrorPayload{Message: "Token expired"}}

func TestREPL_KeptCredentialRecoversWithRefresh(t *testing.T) {
	out := captureOutput(t)
	ta := newTestApp(t)
	ta.sess.cur = session.Session{State: session.Authenticating}
	ta.sess.refreshTo = &models.Identity{ID: "u1", DisplayName: "Ann", Email: "ann@example.com", Role: models.RoleUser}
	r := bufio.NewReader(strings.NewReader("list\nrefresh\nlist\n"))

	runREPL(context.Background(), ta.App, ta.status, r)

	assert.Equal(t, 1, ta.sess.refreshes)
	assert.Equal(t, 1, strings.Count(strings.Join(*out, "\n"), "Please log in first"))
	assert.Contains(t, ta.out.String(), "Profile refreshed: Ann <ann@example.com>")
	assert.Equal(t, 1, ta.gal.activations, "list works once the identity is loaded")
}

func TestREPL_KeptCredentialCanLogOut(t *testing.T) {
	out := captureOutput(t)
	ta := newTestApp(t)
	ta.sess.cur = session.Session{State: session.Authenticating}
	r := bufio.NewReader(strings.NewReader("logout\nlogout\n"))

	runREPL(context.Background(), ta.App, ta.status, r)

	assert.Equal(t, 1, ta.sess.logouts)
	assert.Equal(t, "(anonymous)", ta.status())
	assert.Contains(t, *out, "Please log in first", "a second logout has nothing to end")
}

func TestLogout_AllClearsLocalData(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)
	ta.prefs.pending = "ann@example.com"
	ta.prefs.theme = "dark"

	require.NoError(t, ta.Logout(context.Background(), []string{"--all"}))

	assert.Equal(t, 1, ta.sess.logouts)
	assert.Empty(t, ta.prefs.pending)
	assert.Empty(t, ta.prefs.theme)
	assert.Contains(t, ta.out.String(), "Removed 2 local entries")
}

func TestLogout_KeepsLocalDataByDefault(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)
	ta.prefs.theme = "dark"

	require.NoError(t, ta.Logout(context.Background(), nil))
	assert.Equal(t, "dark", string(ta.prefs.theme))
}

func TestWhoami(t *testing.T) {
	t.Run("verified", func(t *testing.T) {
		ta := newTestApp(t)
		ta.signIn(false)
		ta.creds = fakeCreds{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)}

		require.NoError(t, ta.Whoami(context.Background(), nil))
		out := ta.out.String()
		assert.Contains(t, out, "<ann@example.com> role=user id=u1")
		assert.Contains(t, out, "Signed in since 2026-03-01 12:00")
	})

	t.Run("rejected by the backend", func(t *testing.T) {
		ta := newTestApp(t)
		ta.signIn(false)
		ta.auth.verifyErr = errRejected

		require.NoError(t, ta.Whoami(context.Background(), nil))
		assert.Equal(t, "(anonymous)", ta.status())
		assert.Len(t, ta.sess.authFailures, 1)
		assert.Contains(t, ta.out.String(), "no longer valid")
	})

	t.Run("unsuccessful verification logs out", func(t *testing.T) {
		ta := newTestApp(t)
		ta.signIn(false)
		ta.auth.verifyErr = common.ErrorUnauthorized

		require.NoError(t, ta.Whoami(context.Background(), nil))
		assert.Equal(t, 1, ta.sess.logouts)
	})

	t.Run("network failure keeps the session", func(t *testing.T) {
		ta := newTestApp(t)
		ta.signIn(false)
		ta.auth.verifyErr = &gateway.NetworkError{Method: http.MethodGet, Endpoint: "/auth/verify", Err: context.DeadlineExceeded}

		require.Error(t, ta.Whoami(context.Background(), nil))
		assert.True(t, ta.isLoggedIn())
	})
}

func TestProfile_ShowAndEdit(t *testing.T) {
	ta := newTestApp(t, "Ann B", "1990-04-01")
	ta.signIn(false)
	ta.sess.cur.Identity.DisplayName = "Ann"
	ta.sess.refreshTo = &models.Identity{ID: "u1", DisplayName: "Ann B", Email: "ann@example.com"}
	ctx := context.Background()

	require.NoError(t, ta.Profile(ctx, nil))
	assert.Contains(t, ta.out.String(), "Ann <ann@example.com>")

	require.NoError(t, ta.Profile(ctx, []string{"edit"}))
	assert.Equal(t, []string{"Ann B|1990-04-01"}, ta.acct.updates)
	assert.Equal(t, 1, ta.sess.refreshes)
	assert.Contains(t, ta.out.String(), "Profile updated: Ann B <ann@example.com>")
}

func TestProfile_EditKeepsNameAndChecksDate(t *testing.T) {
	ta := newTestApp(t, "", "01/04/1990", "", "")
	ta.signIn(false)
	ta.sess.cur.Identity.DisplayName = "Ann"
	ctx := context.Background()

	require.ErrorIs(t, ta.Profile(ctx, []string{"edit"}), common.ErrorValidation)
	assert.Empty(t, ta.acct.updates)

	require.NoError(t, ta.Profile(ctx, []string{"edit"}))
	assert.Equal(t, []string{"Ann|"}, ta.acct.updates, "empty name keeps the current one, empty date clears it")
}

func TestProfile_RejectedEndsSession(t *testing.T) {
	ta := newTestApp(t, "Ann", "")
	ta.signIn(false)
	ta.acct.err = errRejected

	err := ta.Profile(context.Background(), []string{"edit"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session ended")
	assert.Equal(t, "(anonymous)", ta.status())
}

func TestPhoto_UploadsAndReloads(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)

	require.NoError(t, ta.Photo(context.Background(), []string{writeTempFile(t, "me.png")}))
	assert.Equal(t, []string{"me.png=0123456789"}, ta.acct.photos)
	assert.Equal(t, 1, ta.sess.refreshes)
	assert.Contains(t, ta.out.String(), "Photo updated")

	require.Error(t, ta.Photo(context.Background(), []string{"/does/not/exist.png"}))
	assert.Len(t, ta.acct.photos, 1)
}

func TestUser_ShowsProfileAndTheirVideos(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)
	ta.acct.profile = &api.UserProfile{Identity: models.Identity{ID: "u2", DisplayName: "Bob", Role: models.RoleAdmin}, VideoCount: 1}
	ta.lib.all = []models.MediaItem{
		{ID: "v1", Title: "Bob's clip", OwnerRef: "u2"},
		{ID: "v2", Title: "Someone else's", OwnerRef: "u3"},
	}

	require.NoError(t, ta.User(context.Background(), []string{"u2"}))
	out := ta.out.String()
	assert.Contains(t, out, "Bob (Admin)")
	assert.Contains(t, out, "1 video(s) uploaded")
	assert.Contains(t, out, "Bob's clip")
	assert.NotContains(t, out, "Someone else's")

	err := ta.User(context.Background(), []string{"nobody"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "User not found")
	assert.True(t, ta.isLoggedIn(), "a 404 does not end the session")
}

func TestMine(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)

	require.NoError(t, ta.Mine(context.Background(), nil))
	assert.Contains(t, ta.out.String(), "You haven't uploaded any videos")

	ta.lib.mine = []models.MediaItem{{ID: "v7", Title: "My holiday"}}
	require.NoError(t, ta.Mine(context.Background(), nil))
	assert.Contains(t, ta.out.String(), "1. [v7] My holiday")
}

func TestChat_KeepsHistoryUntilReset(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)
	ctx := context.Background()

	require.NoError(t, ta.Chat(ctx, []string{"hello"}))
	require.NoError(t, ta.Chat(ctx, []string{"how", "do", "I", "upload?"}))

	require.Len(t, ta.bot.histories, 2)
	assert.Empty(t, ta.bot.histories[0])
	assert.Equal(t, []api.ChatMessage{
		{Role: api.ChatRoleUser, Content: "hello"},
		{Role: api.ChatRoleAssistant, Content: "re: hello"},
	}, ta.bot.histories[1])
	assert.Contains(t, ta.out.String(), "assistant: re: how do I upload?")

	require.NoError(t, ta.Chat(ctx, []string{"reset"}))
	require.NoError(t, ta.Chat(ctx, []string{"again"}))
	assert.Empty(t, ta.bot.histories[2])
}

func TestChat_SessionEndForgetsConversation(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)
	ctx := context.Background()

	require.NoError(t, ta.Chat(ctx, []string{"hello"}))
	ta.sess.publish(session.Session{State: session.Anonymous})
	ta.signIn(false)
	require.NoError(t, ta.Chat(ctx, []string{"hi"}))

	assert.Empty(t, ta.bot.histories[1])
}

func TestChat_FailureIsNotRecorded(t *testing.T) {
	ta := newTestApp(t)
	ta.signIn(false)
	ctx := context.Background()

	ta.bot.err = errRejected
	err := ta.Chat(ctx, []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session ended")
	assert.Equal(t, "(anonymous)", ta.status())

	ta.signIn(false)
	ta.bot.err = nil
	require.NoError(t, ta.Chat(ctx, []string{"hi"}))
	assert.Empty(t, ta.bot.histories[1])
}
