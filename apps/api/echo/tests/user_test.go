package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/user"
	testutil "github.com/trezcool/khidmat/tests"
)

const strongPwd = "Kh1dmat!Dash"

type loginResp struct {
	Token string `json:"token"`
}

func TestUserApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Amina", "amina", "amina@khidmat.test", strongPwd, []string{user.RoleAdmin}, true)
	testutil.CreateUser(t, app.usrRepo, "Karim", "karim", "karim@khidmat.test", strongPwd, []string{user.RoleAdmin}, false)

	tests := []struct {
		name     string
		body     map[string]string
		wantCode int
		wantErr  string
	}{
		{name: "username", body: map[string]string{"username": "amina", "password": strongPwd}, wantCode: http.StatusOK},
		{name: "email in caps", body: map[string]string{"username": " AMINA@khidmat.test ", "password": strongPwd}, wantCode: http.StatusOK},
		{name: "wrong password", body: map[string]string{"username": "amina", "password": "nope"}, wantCode: http.StatusBadRequest, wantErr: "authentication failed"},
		{name: "unknown user", body: map[string]string{"username": "ghost", "password": strongPwd}, wantCode: http.StatusBadRequest, wantErr: "authentication failed"},
		{name: "deactivated", body: map[string]string{"username": "karim", "password": strongPwd}, wantCode: http.StatusForbidden, wantErr: "account deactivated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, "/api/admin/login", "", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				assert.JSONEq(t, marshal(t, httpErr{Error: tt.wantErr}), rec.Body.String())
				return
			}
			var resp loginResp
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)

			rec = app.do(http.MethodGet, "/api/admin/me", resp.Token, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var me user.User
			decode(t, rec, &me)
			assert.Equal(t, "amina", me.Username)
			assert.False(t, me.LastLogin.IsZero())
		})
	}

	t.Run("missing fields", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/admin/login", "", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"username"`)
		assert.Contains(t, rec.Body.String(), `"password"`)
	})
}

func TestUserApi_loginRateLimit(t *testing.T) {
	app := setup(t, func(conf *core.Config) {
		conf.Server.FormRateLimit = 0.001
		conf.Server.FormRateBurst = 2
	})
	body := map[string]string{"username": "ghost", "password": "nope"}

	for i := 0; i < 2; i++ {
		rec := app.do(http.MethodPost, "/api/admin/login", "", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := app.do(http.MethodPost, "/api/admin/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUserApi_refreshToken(t *testing.T) {
	app := setup(t)
	usr, token := app.editor(t)

	rec := app.do(http.MethodPost, "/api/admin/token-refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResp
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	usr.SetActive(false)
	_, err := app.usrRepo.UpdateUser(context.Background(), usr)
	require.NoError(t, err)
	rec = app.do(http.MethodPost, "/api/admin/token-refresh", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, marshal(t, httpErr{Error: "account deactivated"}), rec.Body.String())
}

func TestUserApi_users(t *testing.T) {
	app := setup(t)
	editor, editorToken := app.editor(t)
	owner, ownerToken := app.owner(t)
	intruder := testutil.CreateUser(t, app.usrRepo, "Intruder", "intruder", "intruder@khidmat.test", "", nil, true)
	intruderToken := app.token(t, intruder)

	t.Run("list", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/admin/users?ordering=username", editorToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var users []user.User
		decode(t, rec, &users)
		require.Len(t, users, 3)
		assert.Equal(t, "editor", users[0].Username)

		rec = app.do(http.MethodGet, "/api/admin/users", intruderToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("roles", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/admin/users/roles", editorToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), user.RoleAdminOwner)
	})

	var created user.User
	t.Run("create", func(t *testing.T) {
		body := map[string]interface{}{
			"name": "Fatima", "username": "fatima", "email": "fatima@khidmat.test",
			"password": strongPwd, "password_confirm": strongPwd,
		}
		rec := app.do(http.MethodPost, "/api/admin/users", editorToken, body)
		assert.Equal(t, http.StatusForbidden, rec.Code, "only owners create users")

		rec = app.do(http.MethodPost, "/api/admin/users", ownerToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &created)
		assert.Equal(t, []string{user.RoleAdmin}, created.Roles)
		assert.True(t, created.Active())

		rec = app.do(http.MethodPost, "/api/admin/users", ownerToken, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "username and email are taken")
	})

	t.Run("create with a weak password", func(t *testing.T) {
		body := map[string]interface{}{"name": "Omar", "username": "omar", "password": "1234", "password_confirm": "1234"}
		rec := app.do(http.MethodPost, "/api/admin/users", ownerToken, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"password"`)
	})

	t.Run("detail", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/admin/users/"+editor.ID, editorToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code, "users see themselves")

		rec = app.do(http.MethodGet, "/api/admin/users/"+owner.ID, editorToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "but nobody else")

		rec = app.do(http.MethodGet, "/api/admin/users/"+editor.ID, ownerToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := app.do(http.MethodPut, "/api/admin/users/"+editor.ID, editorToken, map[string]interface{}{"name": "Chief Editor"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "Chief Editor", usr.Name)

		for _, body := range []map[string]interface{}{
			{"is_active": false},
			{"roles": []string{user.RoleAdmin, user.RoleAdminOwner}},
		} {
			rec = app.do(http.MethodPut, "/api/admin/users/"+editor.ID, editorToken, body)
			assert.Equal(t, http.StatusForbidden, rec.Code, body)
		}

		rec = app.do(http.MethodPut, "/api/admin/users/"+created.ID, ownerToken, map[string]interface{}{"is_active": false})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decode(t, rec, &usr)
		assert.False(t, usr.Active())
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.do(http.MethodDelete, "/api/admin/users/"+created.ID, editorToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = app.do(http.MethodDelete, "/api/admin/users/"+owner.ID, ownerToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, "owners cannot delete themselves")

		v := url.Values{"id": {owner.ID, created.ID}}
		rec = app.do(http.MethodDelete, "/api/admin/users?"+v.Encode(), ownerToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = app.do(http.MethodDelete, "/api/admin/users/"+created.ID, ownerToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		v = url.Values{"id": {editor.ID, intruder.ID}}
		rec = app.do(http.MethodDelete, "/api/admin/users?"+v.Encode(), ownerToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = app.do(http.MethodGet, "/api/admin/users", ownerToken, nil)
		var users []user.User
		decode(t, rec, &users)
		require.Len(t, users, 1)
		assert.Equal(t, owner.ID, users[0].ID)
	})
}
