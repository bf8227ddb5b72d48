package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCounters(t *testing.T) {
	s := NewStatsService(nil)

	s.RecordGeneration("local", "twitter", "technology", true)
	s.RecordGeneration("backend", "linkedin", "science", true)
	s.RecordGeneration("local", "twitter", "technology", false)
	s.RecordTranslation("fallback", true)
	s.RecordTranslation("remote", false)
	s.RecordTopicRequest()

	st := s.GetStats()
	assert.Equal(t, 2, st.TotalGenerations)
	assert.Equal(t, 1, st.FailedGenerations)
	assert.Equal(t, map[string]int{"local": 1, "backend": 1}, st.GenerationsByOrigin)
	assert.Equal(t, 1, st.TranslationFallbacks)
	assert.Equal(t, map[string]int{"fallback": 1, "remote": 1}, st.Translations)
	assert.Equal(t, 1, st.TopicRequests)
	assert.Equal(t, 2, st.TodayGenerations)

	// 快照与内部状态互不影响
	st.GenerationsByOrigin["local"] = 100
	assert.Equal(t, 1, s.GetStats().GenerationsByOrigin["local"])
}

func TestStatsPersistAndPrune(t *testing.T) {
	fs := newTestStorage(t)
	s := NewStatsService(fs)

	day := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }
	s.RecordGeneration("local", "blog", "education", true)

	day = day.AddDate(0, 0, 40)
	s.RecordGeneration("local", "blog", "education", true)
	s.Flush()

	reloaded := NewStatsService(fs)
	reloaded.now = func() time.Time { return day }
	st := reloaded.GetStats()
	assert.Equal(t, 2, st.TotalGenerations)
	require.Len(t, st.DailyStats, 1)
	assert.Equal(t, 1, st.DailyStats[day.Format(time.DateOnly)])
	assert.Equal(t, 1, st.TodayGenerations)
}
