package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign_IntersectsDates(t *testing.T) {
	histories := map[string][]PricePoint{
		"AAA": days(epoch, 10, 11, 12, 13, 14),
		// Starts one day later and skips day 3
		"BBB": {
			{Time: epoch.AddDate(0, 0, 1), Price: 20},
			{Time: epoch.AddDate(0, 0, 2), Price: 21},
			{Time: epoch.AddDate(0, 0, 4), Price: 23},
		},
	}

	series, missing, err := Align([]string{"AAA", "BBB"}, histories)
	require.NoError(t, err)
	assert.Empty(t, missing)

	assert.Equal(t, []string{"AAA", "BBB"}, series.Assets())
	require.Equal(t, 3, series.Len())
	assert.Equal(t, []float64{11, 12, 14}, series.Column(0))
	assert.Equal(t, []float64{20, 21, 23}, series.Column(1))

	dates := series.Dates()
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), dates[0])
}

func TestAlign_SameDayDifferentHours(t *testing.T) {
	crypto := days(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 1, 2, 3)
	stock := days(time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC), 5, 6, 7)

	series, _, err := Align([]string{"BTC-USD", "AAPL"}, map[string][]PricePoint{"BTC-USD": crypto, "AAPL": stock})
	require.NoError(t, err)
	assert.Equal(t, 3, series.Len())
}

func TestAlign_ReportsMissing(t *testing.T) {
	histories := map[string][]PricePoint{
		"AAA": days(epoch, 1, 2, 3),
		"ZERO": {{Time: epoch, Price: 0}},
	}

	series, missing, err := Align([]string{"AAA", "NOPE", "ZERO"}, histories)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, series.Assets())
	assert.Equal(t, []string{"NOPE", "ZERO"}, missing)
}

func TestAlign_DuplicateDateKeepsLast(t *testing.T) {
	histories := map[string][]PricePoint{
		"AAA": {
			{Time: epoch, Price: 1},
			{Time: epoch.Add(time.Hour), Price: 2},
			{Time: epoch.AddDate(0, 0, 1), Price: 3},
		},
	}

	series, _, err := Align([]string{"AAA"}, histories)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, series.Column(0))
}

func TestAlign_NoData(t *testing.T) {
	_, missing, err := Align([]string{"A", "B"}, nil)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, []string{"A", "B"}, missing)
}
