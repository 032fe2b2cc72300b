package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap/zaptest"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"itemboard/auth"
	"itemboard/controllers"
	"itemboard/models"
	"itemboard/service"
	"itemboard/store"
	"itemboard/views"
)

const (
	testUser     = "admin"
	testPassword = "password"
)

type fixture struct {
	server *httptest.Server
	mem    *store.Memory
	svc    *service.ItemService
	token  string
}

func setupTestServer(t *testing.T, table string, coll store.Collection, mem *store.Memory) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	svc := service.New(coll, log)

	list := views.NewListView(svc)
	require.NoError(t, list.Start(context.Background()))

	templates, err := views.LoadTemplates()
	require.NoError(t, err)

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	signer := auth.NewSigner("test-secret")
	srv := &controllers.Server{
		Items:     svc,
		List:      list,
		Templates: templates,
		Signer:    signer,
		Accounts:  auth.Accounts{Username: testUser, PasswordHash: hash},
		Log:       log,
	}
	rt, err := Table(table, srv)
	require.NoError(t, err)
	router := SetupRoutes(rt, auth.JWTGuard{Signer: signer}, srv)

	server := httptest.NewServer(Wrap(router, nil, log))
	t.Cleanup(func() {
		server.Close()
		list.Stop()
	})

	token, err := signer.Sign(testUser)
	require.NoError(t, err)
	return &fixture{server: server, mem: mem, svc: svc, token: token}
}

func newFixture(t *testing.T, table string) *fixture {
	mem := store.NewMemory()
	return setupTestServer(t, table, mem, mem)
}

// noRedirect returns a client that reports redirects instead of following them.
func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func (f *fixture) api(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+f.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) form(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: f.token})
	resp, err := noRedirect().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCompactTableOmitsList(t *testing.T) {
	s := &controllers.Server{}
	primary, compact := Primary(s), Compact(s)
	assert.Len(t, compact, len(primary)-1)
	for _, rt := range compact {
		assert.NotEqual(t, ListRoute, rt.Name)
	}

	_, err := Table("tiny", s)
	assert.Error(t, err)
}

func TestListRoutePerTable(t *testing.T) {
	f := newFixture(t, "primary")
	resp, err := http.Get(f.server.URL + "/items")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	c := newFixture(t, "compact")
	resp, err = http.Get(c.server.URL + "/items")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestNavLinksListOnlyWhenRouted(t *testing.T) {
	body := func(f *fixture) string {
		resp, err := http.Get(f.server.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		return buf.String()
	}

	assert.Contains(t, body(newFixture(t, "primary")), `<a href="/items">Items</a>`)
	assert.NotContains(t, body(newFixture(t, "compact")), `href="/items"`)
}

func TestGuardedRoutes(t *testing.T) {
	f := newFixture(t, "primary")
	item, err := f.svc.CreateItem(context.Background(), models.Item{Title: "x"})
	require.NoError(t, err)

	resp, err := noRedirect().Get(f.server.URL + "/items/" + item.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp, err = http.Get(f.server.URL + "/api/items")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, "primary")

	resp, err := noRedirect().PostForm(f.server.URL+"/login", url.Values{"username": {testUser}, "password": {"wrong"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = noRedirect().PostForm(f.server.URL+"/login", url.Values{"username": {testUser}, "password": {testPassword}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/items", resp.Header.Get("Location"))

	var token string
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token)

	req, _ := http.NewRequest(http.MethodGet, f.server.URL+"/user-profile", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPILogin(t *testing.T) {
	f := newFixture(t, "primary")
	body, _ := json.Marshal(map[string]string{"username": testUser, "password": testPassword})
	resp, err := http.Post(f.server.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out["token"])
}

func TestAPIItemLifecycle(t *testing.T) {
	f := newFixture(t, "primary")

	resp := f.api(t, http.MethodPost, "/api/items", map[string]string{"title": "Milk", "body": "ignored"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "test", created.Body)
	assert.True(t, created.Active)

	resp = f.api(t, http.MethodGet, "/api/items/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	update := map[string]any{"title": "Oat milk", "body": "b", "active": false, "timeStamp": 9}
	resp = f.api(t, http.MethodPut, "/api/items/"+created.ID, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got, err := f.svc.GetItem(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Item{ID: created.ID, Title: "Oat milk", Body: "b", Active: false, TimeStamp: 9}, got)

	resp = f.api(t, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []models.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	assert.Len(t, all, 1)

	resp = f.api(t, http.MethodDelete, "/api/items/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.api(t, http.MethodGet, "/api/items/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIUpdateRejectsLooseDocuments(t *testing.T) {
	f := newFixture(t, "primary")

	resp := f.api(t, http.MethodPut, "/api/items/a", map[string]any{"title": "only title"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.api(t, http.MethodPut, "/api/items/a", map[string]any{
		"title": "t", "body": "b", "active": true, "timeStamp": 1, "color": "red",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.api(t, http.MethodPut, "/api/items/a", map[string]any{
		"id": "b", "title": "t", "body": "b", "active": true, "timeStamp": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, f.mem.Len())
}

func TestDetailActions(t *testing.T) {
	f := newFixture(t, "primary")
	ctx := context.Background()
	item, err := f.svc.CreateItem(ctx, models.Item{Title: "Bread"})
	require.NoError(t, err)

	resp := f.form(t, "/items/"+item.ID+"/active", url.Values{"active": {"false"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	got, _ := f.svc.GetItem(ctx, item.ID)
	assert.False(t, got.Active)

	resp = f.form(t, "/items/"+item.ID+"/active", url.Values{"active": {"maybe"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.form(t, "/items/"+item.ID+"/timestamp", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = f.form(t, "/items/"+item.ID+"/delete", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/items", resp.Header.Get("Location"))
	assert.Equal(t, 0, f.mem.Len())

	resp = f.form(t, "/items/"+item.ID+"/delete", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateFormRedirectsToDetail(t *testing.T) {
	f := newFixture(t, "compact")
	resp := f.form(t, "/items", url.Values{"title": {"Eggs"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/items/"))
	assert.Equal(t, 1, f.mem.Len())
}

type rejectingWrites struct{ *store.Memory }

func (rejectingWrites) Set(context.Context, string, bson.M) error { return errors.New("rejected") }
func (rejectingWrites) Delete(context.Context, string) error      { return errors.New("rejected") }

func TestWriteFailureSurfacesAndKeepsList(t *testing.T) {
	mem := store.NewMemory()
	require.NoError(t, mem.Set(context.Background(), "a", models.Item{ID: "a", Title: "orig"}.Document()))
	f := setupTestServer(t, "primary", rejectingWrites{mem}, mem)

	resp := f.api(t, http.MethodPost, "/api/items", map[string]string{"title": "new"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = f.form(t, "/items/a/active", url.Values{"active": {"false"}})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = f.api(t, http.MethodDelete, "/api/items/a", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp = f.api(t, http.MethodGet, "/api/items", nil)
	var all []models.Item
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	assert.Equal(t, []models.Item{{ID: "a", Title: "orig"}}, all)
}

func TestLiveFeed(t *testing.T) {
	f := newFixture(t, "primary")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/items/live"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var items []models.Item
	require.NoError(t, wsjson.Read(ctx, conn, &items))
	assert.Empty(t, items)

	created, err := f.svc.CreateItem(ctx, models.Item{Title: "Live"})
	require.NoError(t, err)

	require.NoError(t, wsjson.Read(ctx, conn, &items))
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
}
