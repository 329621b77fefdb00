package model

import "testing"

func TestCanAdvance_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{"", StageProbing},
		{StageProbing, StageDeciding},
		{StageDeciding, OutcomeSkipped},
		{StageDeciding, StageBackingUp},
		{StageBackingUp, StageEncoding},
		{StageEncoding, StageCommitting},
		{StageEncoding, StageRollingBack},
		{StageCommitting, OutcomeCommitted},
		{StageCommitting, StageRollingBack},
		{StageRollingBack, OutcomeRolledBack},
		{StageRollingBack, OutcomeFailed},
	}

	for _, tc := range cases {
		if !CanAdvance(tc.from, tc.to) {
			t.Fatalf("expected stage transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanAdvance_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{StageProbing, StageEncoding},
		{StageDeciding, OutcomeCommitted},
		{StageEncoding, OutcomeFailed},
		{OutcomeCommitted, StageProbing},
		{"not_a_stage", StageProbing},
	}

	for _, tc := range cases {
		if CanAdvance(tc.from, tc.to) {
			t.Fatalf("expected stage transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestAdvanceStage_BlocksIllegalJump(t *testing.T) {
	a := Attempt{
		Job:   Job{Path: "/data/movie.mkv"},
		Stage: StageProbing,
	}

	if err := AdvanceStage(&a, StageEncoding); err == nil {
		t.Fatalf("expected illegal stage transition error")
	}
	if a.Stage != StageProbing {
		t.Fatalf("stage mutated on rejected transition: %q", a.Stage)
	}
}

func TestSucceeded(t *testing.T) {
	if !(Attempt{Outcome: OutcomeCommitted}).Succeeded() {
		t.Fatal("committed should count as success")
	}
	if !(Attempt{Outcome: OutcomeSkipped}).Succeeded() {
		t.Fatal("skipped should count as success")
	}
	if (Attempt{Outcome: OutcomeRolledBack}).Succeeded() {
		t.Fatal("rolled_back should not count as success")
	}
	if (Attempt{Outcome: OutcomeFailed}).Succeeded() {
		t.Fatal("failed should not count as success")
	}
}
