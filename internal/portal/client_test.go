package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/actor"
	"github.com/SIM-MBKM/mbkm-equivalence-api/internal/models"
	appErrors "github.com/SIM-MBKM/mbkm-equivalence-api/pkg/errors"
)

func TestClientSearchEncodesFilterAndPaging(t *testing.T) {
	var captured *http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"S1","code":"IF101","name":"Algoritma","sks":3,"semester":"GANJIL"}],"current_page":2,"last_page":4,"total":61}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "service-token", time.Second)
	filter := models.FilterCriteria{}.
		With(models.FilterCode, "algo").
		With(models.FilterProgram, "Informatika").
		With(models.FilterCourseType, "")

	page, err := client.Search(context.Background(), filter, 2, 20)
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "/subjects", captured.URL.Path)
	query := captured.URL.Query()
	assert.Equal(t, "algo", query.Get("search"))
	assert.Equal(t, "Informatika", query.Get("program_studi"))
	assert.False(t, query.Has("tipe_mata_kuliah"))
	assert.Equal(t, "2", query.Get("page"))
	assert.Equal(t, "20", query.Get("limit"))
	assert.Equal(t, "Bearer service-token", captured.Header.Get("Authorization"))

	require.Len(t, page.Subjects, 1)
	assert.Equal(t, 3, page.Subjects[0].Credits)
	assert.Equal(t, models.SemesterGanjil, page.Subjects[0].Semester)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, 4, page.LastPage)
	assert.Equal(t, 61, page.Total)
}

func TestClientForwardsOperatorToken(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "service-token", time.Second)
	ctx := actor.With(context.Background(), actor.Actor{UserID: "op-1", AccessToken: "operator-token"})
	page, err := client.Search(ctx, nil, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, "Bearer operator-token", auth)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Empty(t, page.Subjects)
}

func TestClientFindByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/registrations/reg-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"id":"reg-1","user_name":"Ayu","total_sks":20,"equivalents":[{"id":"eq-1","mata_kuliah":{"id":"S1","sks":3}},{"id":"eq-2","subject_id":"S2"}]}}`))
	}))
	defer server.Close()

	reg, err := NewClient(server.URL, "", time.Second).FindByID(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "Ayu", reg.UserName)
	assert.Equal(t, []string{"S1", "S2"}, reg.EquivalentSubjectIDs())
	require.Len(t, reg.EquivalentSubjects(), 1)
	assert.Equal(t, 3, reg.EquivalentSubjects()[0].Credits)
}

func TestClientSubmitPostsDelta(t *testing.T) {
	var body map[string]interface{}
	var method, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewClient(server.URL, "", time.Second).Submit(context.Background(), "reg-1", models.SelectionDelta{ToAdd: []string{"S1", "S2"}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/registrations/reg-1/equivalents", path)
	assert.Contains(t, body, "to_add")
	assert.NotContains(t, body, "to_remove")
}

func TestClientMapsStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		body   string
		code   string
		msg    string
	}{
		{http.StatusNotFound, `{"message":"registration not found"}`, appErrors.ErrNotFound.Code, "registration not found"},
		{http.StatusUnauthorized, ``, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Message},
		{http.StatusUnprocessableEntity, `{"message":"subject S9 does not exist"}`, appErrors.ErrValidation.Code, "subject S9 does not exist"},
		{http.StatusServiceUnavailable, `maintenance`, appErrors.ErrUpstream.Code, "maintenance"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		err := NewClient(server.URL, "", time.Second).Submit(context.Background(), "reg-1", models.SelectionDelta{ToRemove: []string{"S1"}})
		server.Close()

		require.Error(t, err, tc.status)
		appErr := appErrors.FromError(err)
		assert.Equal(t, tc.code, appErr.Code, tc.status)
		assert.Equal(t, tc.msg, appErr.Message, tc.status)
	}
}

func TestClientUnreachablePortal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "", time.Second).Search(context.Background(), nil, 1, 20)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErrors.FromError(err).Code)
}
