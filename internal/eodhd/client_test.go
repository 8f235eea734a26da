package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("demo", WithBaseURL(server.URL), WithLogger(arbor.NewLogger()), WithRateLimit(100))
}

func TestFetchCloses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "demo", r.URL.Query().Get("api_token"))
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("from"))

		switch r.URL.Path {
		case "/eod/KS11.INDX":
			_, _ = w.Write([]byte(`[
				{"date":"2024-03-04","close":2674.27,"adjusted_close":2674.27,"volume":1},
				{"date":"2024-03-05","close":2649.40,"adjusted_close":2649.40,"volume":1}]`))
		case "/eod/005930.KO":
			_, _ = w.Write([]byte(`[{"date":"2024-03-04","close":73400,"adjusted_close":0,"volume":10}]`))
		default:
			http.NotFound(w, r)
		}
	})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	got, err := client.FetchCloses(context.Background(), []string{"KS11.INDX", "005930.KO", "999999.KO"}, from, to)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Len(t, got["KS11.INDX"], 2)
	// adjusted_close of 0 falls back to close
	assert.Equal(t, 73400.0, got["005930.KO"][time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)])
	assert.Equal(t, "eodhd", client.Name())
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "005930.KO", r.URL.Query().Get("s"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			{"date":"2024-03-05T08:00:00+00:00","title":" Samsung rallies ","link":"https://example.com/a"},
			{"date":"2024-03-04","title":"Chip outlook","link":"https://example.com/b"},
			{"date":"2024-03-03","title":"Extra","link":"https://example.com/c"}]`))
	})

	items, err := client.Search(context.Background(), models.NewsQuery{Text: "삼성전자", Code: "005930"}, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Samsung rallies", items[0].Headline)
	assert.Equal(t, "https://example.com/a", items[0].Link)
	assert.Equal(t, 2024, items[0].Published.Year())
	assert.Equal(t, "2024-03-04", items[1].Published.Format("2006-01-02"))
}

func TestSearch_ServerErrorSurfaces(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("plan does not include news"))
	})

	_, err := client.Search(context.Background(), models.NewsQuery{Code: "005930"}, 3)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "403"))
}

func TestGetExchangeDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchange-details/KO", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		_, _ = w.Write([]byte(`{"Code":"KO","Name":"Korea Stock Exchange","Timezone":"Asia/Seoul","isOpen":false,
			"ExchangeHolidays":{
				"1":{"Holiday":"Independence Movement Day","Date":"2024-03-01","Type":"official"},
				"0":{"Holiday":"New Year's Day","Date":"2024-01-01","Type":"official"},
				"2":{"Holiday":"broken","Date":"soon","Type":"official"}}}`))
	})

	details, err := client.GetExchangeDetails(context.Background(), "KO",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "Asia/Seoul", details.Timezone)

	dates := details.HolidayDates()
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-01-01", dates[0].Format(models.DateLayout))
	assert.Equal(t, "2024-03-01", dates[1].Format(models.DateLayout))
}
