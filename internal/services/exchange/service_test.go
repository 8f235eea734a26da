package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/krxdigest/internal/common"
	"github.com/ternarybob/krxdigest/internal/eodhd"
)

// mockDetailsSource implements DetailsSource for testing
type mockDetailsSource struct {
	details *eodhd.ExchangeDetails
	err     error
	code    string
}

func (m *mockDetailsSource) GetExchangeDetails(ctx context.Context, code string, from, to time.Time) (*eodhd.ExchangeDetails, error) {
	m.code = code
	return m.details, m.err
}

func TestRefresh_MergesPublishedHolidays(t *testing.T) {
	source := &mockDetailsSource{details: &eodhd.ExchangeDetails{
		Code: "KO",
		Holidays: map[string]eodhd.ExchangeHoliday{
			"0": {Name: "Independence Movement Day", Date: "2024-03-01"},
			"1": {Name: "Election Day", Date: "2024-04-10"},
		},
	}}

	calendar, err := common.NewTradingCalendar([]string{"2024-03-01"})
	require.NoError(t, err)

	svc := NewService(source, "", arbor.NewLogger())
	require.NoError(t, svc.Refresh(context.Background(), calendar, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, DefaultExchangeCode, source.code)
	assert.Len(t, calendar.Holidays, 2, "configured holiday is not duplicated")
	assert.False(t, calendar.IsWorkingDay(time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)))
}

func TestRefresh_FailureKeepsCalendar(t *testing.T) {
	calendar, err := common.NewTradingCalendar([]string{"2024-03-01"})
	require.NoError(t, err)

	svc := NewService(&mockDetailsSource{err: errors.New("401 unauthorized")}, "KO", arbor.NewLogger())
	err = svc.Refresh(context.Background(), calendar, time.Now())

	assert.Error(t, err)
	assert.Len(t, calendar.Holidays, 1)
}
