package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/layersdb/internal/handlers"
	"github.com/localnerve/layersdb/internal/middleware"
	"github.com/localnerve/layersdb/internal/models"
	"github.com/localnerve/layersdb/internal/services"
	"github.com/localnerve/layersdb/internal/testutil"
	"github.com/localnerve/layersdb/internal/utils"
)

// setupApp wires the API over an in-memory database with two static sessions.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	svc := services.New(testutil.OpenDB(t), services.WithFilesDir(t.TempDir()))
	resolver := services.StaticResolver{
		"alice": models.User{ID: "alice"},
		"bob":   models.User{ID: "bob"},
	}

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.Register(app.Group("/api"), svc, resolver)
	app.Use(handlers.NotFound)
	return app
}

func request(t *testing.T, app *fiber.App, method, path, session string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func createTable(t *testing.T, app *fiber.App, session string, body interface{}) handlers.TableResponse {
	t.Helper()
	resp := request(t, app, "POST", "/api/tables", session, body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var out handlers.TableResponse
	decode(t, resp, &out)
	return out
}

func TestAuthentication(t *testing.T) {
	app := setupApp(t)

	tests := []struct {
		name     string
		session  string
		version  string
		status   int
		errorTyp string
	}{
		{"no session", "", "", fiber.StatusUnauthorized, "authorization.user"},
		{"unknown session", "mallory", "", fiber.StatusUnauthorized, "authorization.session"},
		{"unsupported version", "alice", "2", fiber.StatusBadRequest, "version"},
		{"valid session", "alice", "1.0", fiber.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/tables", nil)
			if tt.session != "" {
				req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: tt.session})
			}
			if tt.version != "" {
				req.Header.Set("X-Api-Version", tt.version)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.errorTyp == "" {
				assert.Equal(t, "1.0.0", resp.Header.Get("X-Api-Version"))
				return
			}
			var e utils.ErrorResponseStruct
			decode(t, resp, &e)
			assert.Equal(t, tt.errorTyp, e.Type)
			assert.False(t, e.Ok)
		})
	}
}

func TestTableRoutes(t *testing.T) {
	app := setupApp(t)

	table := createTable(t, app, "alice", map[string]interface{}{
		"name":   "Cities",
		"fields": []map[string]interface{}{{"name": "name", "type": "text"}},
	})
	assert.Equal(t, "cities", table.Name)
	assert.Equal(t, fmt.Sprintf("/api/tables/%d", table.ID), table.ResourceURI)
	assert.Len(t, table.Fields, 2)

	resp := request(t, app, "GET", table.ResourceURI, "alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = request(t, app, "GET", "/api/tables", "alice", nil)
	var list []handlers.TableResponse
	decode(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, table.DataURI, list[0].DataURI)

	resp = request(t, app, "GET", "/api/tables", "bob", nil)
	decode(t, resp, &list)
	assert.Empty(t, list)

	resp = request(t, app, "PUT", table.ResourceURI, "alice", map[string]string{"name": "Towns"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var renamed handlers.TableResponse
	decode(t, resp, &renamed)
	assert.Equal(t, "towns", renamed.Name)

	resp = request(t, app, "POST", table.ResourceURI+"/fields", "alice", map[string]string{"name": "Population", "type": "integer"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var field models.FieldDefinition
	decode(t, resp, &field)
	assert.Equal(t, "population", field.Name)

	fieldURI := fmt.Sprintf("/api/fields/%d", field.ID)
	resp = request(t, app, "PUT", fieldURI, "alice", map[string]string{"name": "Inhabitants"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = request(t, app, "GET", fieldURI, "bob", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	resp = request(t, app, "DELETE", fieldURI, "alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = request(t, app, "DELETE", table.ResourceURI, "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var deleted utils.DeletedResponseStruct
	decode(t, resp, &deleted)
	assert.True(t, deleted.Ok)
	assert.Equal(t, "table", deleted.Kind)

	resp = request(t, app, "GET", table.ResourceURI, "alice", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	app := setupApp(t)
	table := createTable(t, app, "alice", map[string]interface{}{"name": "Cities"})

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   interface{}
		status int
		typ    string
		field  string
	}{
		{"duplicate table", "POST", "/api/tables", "alice", map[string]string{"name": "cities"}, fiber.StatusConflict, "duplicate_name", "name"},
		{"unknown field type", "POST", "/api/tables", "alice", map[string]interface{}{
			"name": "Rivers", "fields": []map[string]string{{"name": "x", "type": "money"}},
		}, fiber.StatusBadRequest, "validation", "fields.0.type"},
		{"reserved geometry", "POST", "/api/tables", "alice", map[string]interface{}{
			"name": "Rivers", "fields": []map[string]string{{"name": "geometry", "type": "text"}},
		}, fiber.StatusBadRequest, "validation", "fields.0.name"},
		{"other owner", "GET", table.ResourceURI, "bob", nil, fiber.StatusNotFound, "not_found", ""},
		{"missing table", "GET", "/api/tables/9999", "alice", nil, fiber.StatusNotFound, "not_found", ""},
		{"bad id", "GET", "/api/tables/abc", "alice", nil, fiber.StatusBadRequest, "validation", "id"},
		{"row id overflow", "GET", table.DataURI + "/9223372036854775808", "alice", nil, fiber.StatusBadRequest, "validation", "row"},
		{"bad row id", "GET", table.DataURI + "/0", "alice", nil, fiber.StatusBadRequest, "validation", "row"},
		{"bad row value", "POST", table.DataURI, "alice", map[string]string{"nope": "x"}, fiber.StatusBadRequest, "validation", "nope"},
		{"unknown route", "GET", "/api/nothing", "alice", nil, fiber.StatusNotFound, "http", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := request(t, app, tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			var e utils.ErrorResponseStruct
			decode(t, resp, &e)
			assert.Equal(t, tt.status, e.Status)
			assert.Equal(t, tt.typ, e.Type)
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestDataRoutes(t *testing.T) {
	app := setupApp(t)
	table := createTable(t, app, "alice", map[string]interface{}{
		"name":          "Cities",
		"fields":        []map[string]string{{"name": "name", "type": "text"}},
		"geometry_type": "point",
	})

	resp := request(t, app, "POST", table.DataURI, "alice", map[string]interface{}{
		"name":     "Paris",
		"geometry": map[string]interface{}{"type": "Point", "coordinates": []float64{2.35, 48.85}},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var row map[string]interface{}
	decode(t, resp, &row)
	rowURI := fmt.Sprintf("%s/%v", table.DataURI, row["id"])

	resp = request(t, app, "GET", table.DataURI+"?limit=5", "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var page services.RowPage
	decode(t, resp, &page)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Paris", page.Rows[0]["name"])

	resp = request(t, app, "PUT", rowURI, "alice", map[string]string{"name": "Lutetia"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decode(t, resp, &row)
	assert.Equal(t, "Lutetia", row["name"])

	resp = request(t, app, "GET", rowURI, "bob", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Attach, download and delete a file.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", rowURI+"/files", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "alice"})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var file models.AttachedFile
	decode(t, resp, &file)
	assert.Equal(t, "notes.txt", file.OriginalName)

	resp = request(t, app, "GET", rowURI+"/files", "alice", nil)
	var files []models.AttachedFile
	decode(t, resp, &files)
	require.Len(t, files, 1)

	fileURI := fmt.Sprintf("/api/files/%d", file.ID)
	resp = request(t, app, "GET", fileURI, "alice", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))

	resp = request(t, app, "GET", fileURI, "bob", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = request(t, app, "DELETE", rowURI, "alice", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp = request(t, app, "GET", fileURI, "alice", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestImportRoute(t *testing.T) {
	app := setupApp(t)

	body := map[string]interface{}{
		"type": "FeatureCollection",
		"name": "Wells",
		"features": map[string]interface{}{
			"properties": map[string]interface{}{"depth": 12.5},
			"geometry":   map[string]interface{}{"type": "Point", "coordinates": []float64{1, 2}},
		},
	}
	resp := request(t, app, "POST", "/api/tables/import?name=Deep+Wells", "alice", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderLocation))

	var res struct {
		Table models.TableDefinition `json:"table"`
		Rows  int                    `json:"rows"`
	}
	decode(t, resp, &res)
	assert.Equal(t, "deep_wells", res.Table.Name)
	assert.Equal(t, 1, res.Rows)

	resp = request(t, app, "POST", "/api/tables/import", "alice", map[string]interface{}{"name": "Empty", "features": []interface{}{}})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
