package model

import (
	"testing"
	"time"
)

func TestDidntFollowRulesTwoStrikes(t *testing.T) {
	s := &Subscriber{}

	s.DidntFollowRules()
	if !s.HasReceivedWarning || s.HasIssue {
		t.Fatalf("first strike should only warn, got %+v", s)
	}

	s.DidntFollowRules()
	if !s.HasIssue {
		t.Fatal("second strike should block")
	}

	// flags never un-set by further strikes
	s.DidntFollowRules()
	if !s.HasReceivedWarning || !s.HasIssue {
		t.Fatalf("flags must stay set, got %+v", s)
	}
}

func TestSubscriptionEnd(t *testing.T) {
	start := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	s := &Subscriber{SubscribedOn: start}

	end := s.SubscriptionEnd(365)
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !end.Equal(want) {
		t.Fatalf("got %v, want %v", end, want)
	}
}
