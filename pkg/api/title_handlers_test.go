package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTitlesIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t)

	rec := env.do(t, http.MethodGet, "/v1/titles", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var titles []Title
	decodeBody(t, rec, &titles)
	require.Len(t, titles, 1)
	assert.Equal(t, "The Long Goodbye", titles[0].Name)
	assert.Equal(t, "film", titles[0].Category.Slug)
}

func TestListTitlesFilters(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t)
	other, err := env.store.CreateTitle(context.Background(), &TitleWrite{
		Name: "Punchline", Year: 1988, Genres: []string{"comedy"},
	})
	require.NoError(t, err)

	cases := []struct {
		query string
		want  int64
	}{
		{"category=film", 0},
		{"genre=comedy", other.ID},
		{"name=punch", other.ID},
		{"year=1988", other.ID},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/v1/titles?"+tc.query, "", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var titles []Title
			decodeBody(t, rec, &titles)
			require.Len(t, titles, 1)
			if tc.want != 0 {
				assert.Equal(t, tc.want, titles[0].ID)
			}
		})
	}
}

func TestUnratedTitleHasNullRating(t *testing.T) {
	env := newTestEnv(t)
	title := env.seedTitle(t)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/v1/titles/%d", title.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	// nil, not zero
	assert.Contains(t, rec.Body.String(), `"rating":null`)
}

func TestCreateTitleRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t)
	body := TitleWrite{Name: "New Work", Year: 2001, Genres: []string{"drama"}}

	rec := env.do(t, http.MethodPost, "/v1/titles", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/titles", tokenUser, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/titles", tokenMod, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/titles", tokenAdmin, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// A superuser passes IsAdmin regardless of stored role.
	body.Name = "Another Work"
	rec = env.do(t, http.MethodPost, "/v1/titles", tokenSuper, body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTitleYearBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t)
	thisYear := time.Now().Year()

	rec := env.do(t, http.MethodPost, "/v1/titles", tokenAdmin, TitleWrite{
		Name: "From The Future", Year: thisYear + 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/titles", tokenAdmin, TitleWrite{
		Name: "Fresh Release", Year: thisYear,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTitleUnknownSlugIs400(t *testing.T) {
	env := newTestEnv(t)
	env.seedTitle(t)

	ghost := "ghost"
	rec := env.do(t, http.MethodPost, "/v1/titles", tokenAdmin, TitleWrite{
		Name: "Orphan", Year: 2000, Category: &ghost,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/titles", tokenAdmin, TitleWrite{
		Name: "Orphan", Year: 2000, Genres: []string{"ghost"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTitleNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/titles/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchTitle(t *testing.T) {
	env := newTestEnv(t)
	title := env.seedTitle(t)

	name := "Renamed"
	rec := env.do(t, http.MethodPatch, fmt.Sprintf("/v1/titles/%d", title.ID), tokenAdmin, TitlePatch{Name: &name})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated Title
	decodeBody(t, rec, &updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 1973, updated.Year)

	rec = env.do(t, http.MethodPatch, fmt.Sprintf("/v1/titles/%d", title.ID), tokenUser, TitlePatch{Name: &name})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// Each supplied patch field is validated on its own; absent fields are not.
func TestPatchTitleValidatesSuppliedFields(t *testing.T) {
	env := newTestEnv(t)
	title := env.seedTitle(t)
	path := fmt.Sprintf("/v1/titles/%d", title.ID)

	empty := ""
	rec := env.do(t, http.MethodPatch, path, tokenAdmin, TitlePatch{Name: &empty})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	future := time.Now().Year() + 1
	rec = env.do(t, http.MethodPatch, path, tokenAdmin, TitlePatch{Year: &future})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A description-only patch touches neither validator.
	desc := "restored cut"
	rec = env.do(t, http.MethodPatch, path, tokenAdmin, TitlePatch{Description: &desc})
	require.Equal(t, http.StatusOK, rec.Code)

	thisYear := time.Now().Year()
	rec = env.do(t, http.MethodPatch, path, tokenAdmin, TitlePatch{Year: &thisYear})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteTitle(t *testing.T) {
	env := newTestEnv(t)
	title := env.seedTitle(t)
	path := fmt.Sprintf("/v1/titles/%d", title.ID)

	rec := env.do(t, http.MethodDelete, path, tokenUser, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, path, tokenAdmin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
