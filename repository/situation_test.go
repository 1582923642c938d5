package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/siri-hub/siri"
)

func newTestSituationRepo() *SituationRepository {
	return NewSituationRepository(NewMemoryMaps[siri.PtSituationElement](), testOptions())
}

func situation(number string, version int, severity string, validUntil time.Time) siri.PtSituationElement {
	return siri.PtSituationElement{
		CreationTime:    siri.TimePtr(time.Now()),
		ParticipantRef:  "TST",
		SituationNumber: number,
		Version:         siri.IntPtr(version),
		Progress:        siri.ProgressOpen,
		Severity:        severity,
		ValidityPeriods: []siri.ValidityPeriod{{
			StartTime: siri.TimePtr(time.Now().Add(-time.Hour)),
			EndTime:   siri.TimePtr(validUntil),
		}},
	}
}

func TestSituationVersionOrdering(t *testing.T) {
	repo := newTestSituationRepo()
	validUntil := time.Now().Add(24 * time.Hour)

	_, stats, err := repo.AddAll("TST", []siri.PtSituationElement{situation("sit-1", 2, "normal", validUntil)})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Accepted)

	// Lower version is discarded even though its content differs.
	_, stats, err = repo.AddAll("TST", []siri.PtSituationElement{situation("sit-1", 1, "severe", validUntil)})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Outdated)

	all, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "normal", all[0].Severity)

	// Equal version replaces, allowing corrected resubmission.
	_, stats, err = repo.AddAll("TST", []siri.PtSituationElement{situation("sit-1", 2, "slight", validUntil)})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)

	all, err = repo.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "slight", all[0].Severity)

	// Higher version wins.
	_, stats, err = repo.AddAll("TST", []siri.PtSituationElement{situation("sit-1", 3, "severe", validUntil)})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Accepted)
}

func TestDraftSituationsIgnored(t *testing.T) {
	repo := newTestSituationRepo()
	draft := situation("sit-1", 1, "normal", time.Now().Add(time.Hour))
	draft.Progress = siri.ProgressDraft

	_, stats, err := repo.AddAll("TST", []siri.PtSituationElement{draft})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSituationWithoutValidityRejected(t *testing.T) {
	repo := newTestSituationRepo()
	unbounded := situation("sit-1", 1, "normal", time.Now())
	unbounded.ValidityPeriods = []siri.ValidityPeriod{{StartTime: siri.TimePtr(time.Now())}}

	_, stats, err := repo.AddAll("TST", []siri.PtSituationElement{unbounded})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Outdated)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSituationRetroactiveCancellation(t *testing.T) {
	opts := testOptions()
	opts.GracePeriod = 0
	repo := NewSituationRepository(NewMemoryMaps[siri.PtSituationElement](), opts)

	_, stats, err := repo.AddAll("TST", []siri.PtSituationElement{situation("sit-1", 1, "normal", time.Now().Add(time.Hour))})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Accepted)

	// Version 2 closes the validity in the past: the live situation must
	// be actively deleted.
	_, stats, err = repo.AddAll("TST", []siri.PtSituationElement{situation("sit-1", 2, "normal", time.Now().Add(-time.Minute))})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Outdated)

	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSituationLatestValidityAcrossPeriods(t *testing.T) {
	now := time.Now()
	s := situation("sit-1", 1, "normal", now.Add(time.Hour))
	s.ValidityPeriods = append(s.ValidityPeriods, siri.ValidityPeriod{
		StartTime: siri.TimePtr(now),
		EndTime:   siri.TimePtr(now.Add(3 * time.Hour)),
	})

	latest := s.LatestValidity()
	require.NotNil(t, latest)
	assert.Equal(t, now.Add(3*time.Hour).Unix(), latest.Unix())
}
