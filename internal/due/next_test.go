package due

import (
	"testing"
	"time"

	"github.com/pathakanu/forgetMeNot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	r := workday()
	firedAtNine := model.LastNotified{r.ID: at("09:00").UnixMilli()}
	firedAtFourThirty := model.LastNotified{r.ID: at("16:30").UnixMilli()}

	cases := []struct {
		name string
		now  time.Time
		last model.LastNotified
		want time.Time
	}{
		{"before window", at("07:15"), nil, at("09:00")},
		{"after window", at("18:00"), nil, at("09:00").AddDate(0, 0, 1)},
		{"due now", at("09:00").Add(20 * time.Second), nil, at("09:00")},
		{"waiting for cadence", at("09:20"), firedAtNine, at("10:00")},
		{"cadence overruns window", at("16:45"), firedAtFourThirty, at("09:00").AddDate(0, 0, 1)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Next(tc.now, r, tc.last)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s want %s", got, tc.want)
		})
	}
}

func TestNextMalformed(t *testing.T) {
	r := workday()
	r.TimeWindowEnd = "late"

	_, err := Next(at("10:00"), r, nil)
	assert.Error(t, err)
}

func TestFormatCountdown(t *testing.T) {
	assert.Equal(t, "Due now!", FormatCountdown(0))
	assert.Equal(t, "Due now!", FormatCountdown(-time.Second))
	assert.Equal(t, "0m 30s", FormatCountdown(30*time.Second))
	assert.Equal(t, "40m 0s", FormatCountdown(40*time.Minute))
	assert.Equal(t, "1h 5m 1s", FormatCountdown(time.Hour+5*time.Minute+500*time.Millisecond))
}
