package models

import "testing"

func TestBaseModelBeforeCreateGeneratesID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.ID == "" {
		t.Fatal("expected base model ID to be generated")
	}
}

func TestLeadStatusTransitions(t *testing.T) {
	cases := []struct {
		from    LeadStatus
		to      LeadStatus
		allowed bool
	}{
		{LeadStatusNew, LeadStatusContacted, true},
		{LeadStatusNew, LeadStatusQualified, false},
		{LeadStatusContacted, LeadStatusQualified, true},
		{LeadStatusQualified, LeadStatusNegotiation, true},
		{LeadStatusNegotiation, LeadStatusProposal, true},
		{LeadStatusProposal, LeadStatusDocumentation, true},
		{LeadStatusDocumentation, LeadStatusWon, true},
		{LeadStatusQualified, LeadStatusLost, true},
		{LeadStatusWon, LeadStatusLost, false},
		{LeadStatusLost, LeadStatusNew, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestLeadStatusTerminal(t *testing.T) {
	for _, s := range []LeadStatus{LeadStatusWon, LeadStatusLost} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []LeadStatus{LeadStatusNew, LeadStatusNegotiation, LeadStatusDocumentation} {
		if s.Terminal() {
			t.Fatalf("did not expect %s to be terminal", s)
		}
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	if !TaskStatusOpen.CanTransitionTo(TaskStatusInProgress) {
		t.Fatal("open -> in_progress should be allowed")
	}
	if TaskStatusDone.CanTransitionTo(TaskStatusOpen) {
		t.Fatal("done is terminal")
	}
	if !TaskStatusDone.Terminal() || !TaskStatusCancelled.Terminal() {
		t.Fatal("done and cancelled must be terminal")
	}
}

func TestRequestStatusTerminal(t *testing.T) {
	if RequestPending.Terminal() {
		t.Fatal("pending must not be terminal")
	}
	for _, s := range []RequestStatus{RequestApproved, RequestRejected, RequestCancelled, RequestExpired} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
}

func TestRequestPairKeyConnectionIsOrderIndependent(t *testing.T) {
	alice := "a0000000-0000-0000-0000-000000000001"
	bob := "b0000000-0000-0000-0000-000000000002"

	forward := &Request{Kind: RequestConnection, RequesterID: alice, TargetUserID: &bob}
	reverse := &Request{Kind: RequestConnection, RequesterID: bob, TargetUserID: &alice}

	if forward.PairKey() == "" {
		t.Fatal("expected a pair key")
	}
	if forward.PairKey() != reverse.PairKey() {
		t.Fatalf("crossing connection requests must share a pair key: %q vs %q", forward.PairKey(), reverse.PairKey())
	}
}

func TestRequestPairKeyGroupKinds(t *testing.T) {
	user := "a0000000-0000-0000-0000-000000000001"
	group := "c0000000-0000-0000-0000-000000000003"

	join := &Request{Kind: RequestGroupJoin, RequesterID: user, GroupID: &group}
	invite := &Request{Kind: RequestGroupInvite, RequesterID: "someone-else", TargetUserID: &user, GroupID: &group}

	if join.PairKey() == invite.PairKey() {
		t.Fatal("join and invite keys must not collide across kinds")
	}
	if join.PairKey() == "" || invite.PairKey() == "" {
		t.Fatal("expected pair keys for group kinds")
	}

	incomplete := &Request{Kind: RequestGroupJoin, RequesterID: user}
	if incomplete.PairKey() != "" {
		t.Fatal("missing group id must yield an empty key")
	}
}

func TestCanonicalPair(t *testing.T) {
	a, b := CanonicalPair("zzz", "aaa")
	if a != "aaa" || b != "zzz" {
		t.Fatalf("expected ordered pair, got (%s, %s)", a, b)
	}
}
