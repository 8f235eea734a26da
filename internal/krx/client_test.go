package krx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/krxdigest/internal/common"
)

const dailyTradingFixture = `{"OutBlock_1":[
 {"BAS_DD":"20240305","ISU_CD":"005930","ISU_NM":"삼성전자","MKT_NM":"KOSPI","TDD_CLSPRC":"73,400","MKTCAP":"438,177,227,217,000"},
 {"BAS_DD":"20240305","ISU_CD":"000660","ISU_NM":"SK하이닉스","MKT_NM":"KOSPI","TDD_CLSPRC":"160,000","MKTCAP":116480000000000},
 {"BAS_DD":"20240305","ISU_CD":"Q500001","ISU_NM":"ETN","MKT_NM":"KOSPI","MKTCAP":null}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]ClientOption{
		WithBaseURL(server.URL),
		WithLogger(arbor.NewLogger()),
		WithRateLimit(100),
	}, opts...)
	return NewClient("test-key", opts...)
}

func TestFetchListings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sto/stk_bydd_trd", r.URL.Path)
		assert.Equal(t, "20240305", r.URL.Query().Get("basDd"))
		assert.Equal(t, "test-key", r.Header.Get("AUTH_KEY"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(dailyTradingFixture))
	})

	rows, err := client.FetchListings(context.Background(), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "005930", rows[0].Code)
	assert.Equal(t, "삼성전자", rows[0].Name)
	assert.Equal(t, "438,177,227,217,000", rows[0].MarketCap)
	assert.Equal(t, "116480000000000", rows[1].MarketCap)
	assert.Equal(t, "", rows[2].MarketCap)
}

func TestFetchListings_EmptyDay(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"OutBlock_1":[]}`))
	})

	rows, err := client.FetchListings(context.Background(), time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchListings_Unauthorized(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"respCode":"401","respMsg":"Unauthorized API Call"}`))
	}, WithRetry(common.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond}))

	_, err := client.FetchListings(context.Background(), time.Now())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx responses are not retried")
}

func TestFetchListings_RetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(dailyTradingFixture))
	}, WithRetry(common.RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}))

	rows, err := client.FetchListings(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}
