package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("ATTENDANCE_RETENTION", "720h")
	t.Setenv("CLUB_TIMEZONE", "UTC")
	t.Setenv("ADMIN_UIDS", "g-1,g-2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	require.Equal(t, 720*time.Hour, cfg.AttendanceRetention)
	require.Equal(t, []string{"g-1", "g-2"}, cfg.AdminUIDs)
	require.Equal(t, "UTC", cfg.ClubTimezone.String())
	require.Equal(t, "@every 1m", cfg.ResyncSchedule)
	require.Equal(t, 5*time.Second, cfg.SubmitCooldown)
	require.Equal(t, 30*time.Second, cfg.RequestCooldown)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("JUDGE_TIMEOUT", "soon")
	_, err := Load()
	require.ErrorContains(t, err, "JUDGE_TIMEOUT")

	t.Setenv("JUDGE_TIMEOUT", "30s")
	t.Setenv("ATTENDANCE_BONUS", "fifty")
	_, err = Load()
	require.ErrorContains(t, err, "ATTENDANCE_BONUS")
}
