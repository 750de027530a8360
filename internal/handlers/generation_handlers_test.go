package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generationsRoute(h *Handlers) func(*gin.Engine) {
	return func(r *gin.Engine) {
		r.GET("/generations", h.ListMyGenerations)
	}
}

func generationRows(urls ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "user_id", "prompt", "image_url", "seed", "image_size", "credits_used", "created_at"})
	for i, url := range urls {
		rows.AddRow("id-"+url, testUserID, "a red fox", url, int64(i), "square", 1, time.Now())
	}
	return rows
}

func TestListMyGenerations_DefaultLimit(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery("SELECT (.+) FROM image_generations").
		WithArgs(testUserID, 20).
		WillReturnRows(generationRows("https://x/1.png", "https://x/2.png"))

	w := performRequest(h, http.MethodGet, "/generations", "", generationsRoute(h))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Generations []struct {
			ImageURL string `json:"imageUrl"`
			Seed     *int64 `json:"seed"`
		} `json:"generations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Generations, 2)
	assert.Equal(t, "https://x/1.png", body.Generations[0].ImageURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMyGenerations_ClampsLimit(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery("SELECT (.+) FROM image_generations").
		WithArgs(testUserID, 50).
		WillReturnRows(generationRows())

	w := performRequest(h, http.MethodGet, "/generations?limit=500", "", generationsRoute(h))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMyGenerations_RejectsBadLimit(t *testing.T) {
	h, mock := newTestHandlers(t)

	w := performRequest(h, http.MethodGet, "/generations?limit=banana", "", generationsRoute(h))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListMyGenerations_EmptyHistoryIsAnEmptyList(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery("SELECT (.+) FROM image_generations").
		WithArgs(testUserID, 20).
		WillReturnRows(generationRows())

	w := performRequest(h, http.MethodGet, "/generations", "", generationsRoute(h))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"generations":[]`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
