package domain_test

import (
	"testing"

	"github.com/lessonforge/lessonforge/internal/domain"
)

func TestResultingStatus_ValidPaths(t *testing.T) {
	cases := []struct {
		entity domain.EntityType
		src    domain.Status
		event  domain.Event
		want   domain.Status
	}{
		{domain.EntityQuote, domain.QuoteCreated, domain.EventAccept, domain.QuoteAccepted},
		{domain.EntityQuote, domain.QuoteCreated, domain.EventExpire, domain.QuoteExpired},
		{domain.EntityQuote, domain.QuoteCreated, domain.EventReject, domain.QuoteRejected},
		{domain.EntityQuote, domain.QuoteAccepted, domain.EventRevert, domain.QuoteCreated},
		{domain.EntityLesson, domain.LessonRequested, domain.EventAccept, domain.LessonAccepted},
		{domain.EntityLesson, domain.LessonRequested, domain.EventReject, domain.LessonRejected},
		{domain.EntityLesson, domain.LessonAccepted, domain.EventComplete, domain.LessonCompleted},
		{domain.EntityLesson, domain.LessonAccepted, domain.EventVoid, domain.LessonVoided},
		{domain.EntityObjective, domain.ObjectiveCreated, domain.EventStart, domain.ObjectiveInProgress},
		{domain.EntityObjective, domain.ObjectiveInProgress, domain.EventAchieve, domain.ObjectiveAchieved},
		{domain.EntityObjective, domain.ObjectiveInProgress, domain.EventAbandon, domain.ObjectiveAbandoned},
		{domain.EntityHourlyRate, domain.RateActive, domain.EventDeactivate, domain.RateInactive},
		{domain.EntityHourlyRate, domain.RateInactive, domain.EventActivate, domain.RateActive},
	}

	for _, tc := range cases {
		got, ok := domain.ResultingStatus(tc.entity, tc.src, tc.event)
		if !ok {
			t.Errorf("ResultingStatus(%s, %q, %q): transition missing", tc.entity, tc.src, tc.event)
			continue
		}
		if got != tc.want {
			t.Errorf("ResultingStatus(%s, %q, %q) = %q, want %q", tc.entity, tc.src, tc.event, got, tc.want)
		}
	}
}

func TestResultingStatus_InvalidPaths(t *testing.T) {
	// These pairs must not exist in any table.
	invalid := []struct {
		entity domain.EntityType
		src    domain.Status
		event  domain.Event
	}{
		{domain.EntityLesson, domain.LessonRequested, domain.EventComplete},
		{domain.EntityLesson, domain.LessonCompleted, domain.EventVoid},
		{domain.EntityLesson, domain.LessonVoided, domain.EventAccept},
		{domain.EntityQuote, domain.QuoteExpired, domain.EventAccept},
		{domain.EntityQuote, domain.QuoteRejected, domain.EventAccept},
		{domain.EntityQuote, domain.QuoteAccepted, domain.EventAccept},
		{domain.EntityQuote, domain.QuoteCreated, domain.EventRevert},
		{domain.EntityObjective, domain.ObjectiveCreated, domain.EventAchieve},
		{domain.EntityObjective, domain.ObjectiveAchieved, domain.EventAbandon},
		{domain.EntityHourlyRate, domain.RateActive, domain.EventActivate},
	}

	for _, tc := range invalid {
		if domain.IsValidTransition(tc.entity, tc.src, tc.event) {
			t.Errorf("IsValidTransition(%s, %q, %q) = true, want false", tc.entity, tc.src, tc.event)
		}
	}
}

func TestTerminalStatusesAreSinks(t *testing.T) {
	terminal := []struct {
		entity domain.EntityType
		status domain.Status
	}{
		{domain.EntityQuote, domain.QuoteExpired},
		{domain.EntityQuote, domain.QuoteRejected},
		{domain.EntityLesson, domain.LessonCompleted},
		{domain.EntityLesson, domain.LessonRejected},
		{domain.EntityLesson, domain.LessonVoided},
		{domain.EntityObjective, domain.ObjectiveAchieved},
		{domain.EntityObjective, domain.ObjectiveAbandoned},
	}

	for _, tc := range terminal {
		for _, tr := range domain.TransitionsFor(tc.entity) {
			if tr.Src == tc.status {
				t.Errorf("%s status %q should be terminal but has outgoing event %q", tc.entity, tc.status, tr.Event)
			}
		}
	}
}

func TestKnownEntityType(t *testing.T) {
	for _, et := range domain.EntityTypes {
		if !domain.KnownEntityType(et) {
			t.Errorf("KnownEntityType(%q) = false, want true", et)
		}
	}
	if domain.KnownEntityType("invoice") {
		t.Error(`KnownEntityType("invoice") = true, want false`)
	}
}
