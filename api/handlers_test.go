package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFailureStatusCodes(t *testing.T) {
	app := &application{}

	tests := []struct {
		err  error
		want int
	}{
		{errIdentityMissing, http.StatusUnauthorized},
		{fmt.Errorf("task with id 9 %w", errEntityNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: you do not have permission to edit or delete this task", errPermissionDenied), http.StatusForbidden},
		{errFieldRestricted, http.StatusForbidden},
		{fmt.Errorf("%w: both page and size must be specified", errFilterInvalid), http.StatusBadRequest},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		app.writeFailure(w, tc.err)
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestIdentityFromClaims(t *testing.T) {
	ident, err := identityFromClaims(jwt.MapClaims{
		"email":       "grace@example.com",
		"given_name":  "Grace",
		"family_name": "Hopper",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", ident.Email)
	assert.Equal(t, "Grace", ident.GivenName)
	assert.Equal(t, "Hopper", ident.FamilyName)

	// Keycloak-style tokens carry preferred_username instead.
	ident, err = identityFromClaims(jwt.MapClaims{
		"preferred_username": "alan@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "alan@example.com", ident.Email)

	_, err = identityFromClaims(jwt.MapClaims{"given_name": "nobody"})
	assert.Error(t, err)
}

func TestParseTaskFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/filter?page=2&size=25&search_query=budget&author_id=5", nil)
	f, err := parseTaskFilter(r)
	require.NoError(t, err)
	require.NotNil(t, f.Page)
	require.NotNil(t, f.Size)
	assert.Equal(t, 2, *f.Page)
	assert.Equal(t, 25, *f.Size)
	assert.Equal(t, "budget", f.SearchQuery)
	require.NotNil(t, f.AuthorID)
	assert.Equal(t, int64(5), *f.AuthorID)
	assert.Nil(t, f.AssigneeID)

	// Absent pagination stays nil so the precondition check can reject it.
	r = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/filter?search_query=budget", nil)
	f, err = parseTaskFilter(r)
	require.NoError(t, err)
	assert.Nil(t, f.Page)
	assert.Nil(t, f.Size)
	assert.ErrorIs(t, checkTaskFilter(f), errFilterInvalid)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/tasks/filter?page=x&size=10", nil)
	_, err = parseTaskFilter(r)
	assert.Error(t, err)
}

func TestParsePagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/tasks?page=3&size=50", nil)
	page, size := parsePagination(r)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, size)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	page, size = parsePagination(r)
	assert.Equal(t, 0, page)
	assert.Equal(t, 10, size)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/tasks?page=-2&size=0", nil)
	page, size = parsePagination(r)
	assert.Equal(t, 0, page)
	assert.Equal(t, 10, size)
}
