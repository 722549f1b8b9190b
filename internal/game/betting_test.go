package game

import (
	"errors"
	"testing"
)

func startedThreePlayerRoom(t *testing.T) *Room {
	t.Helper()
	r := threePlayerRoom(t)
	if err := r.StartGame("", t0); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return r
}

// checkChipConservation verifies that chips only ever move between stacks
// and the pot.
func checkChipConservation(t *testing.T, r *Room, total int) {
	t.Helper()
	sum := r.GameState().Pot
	for _, p := range r.GameState().Players {
		sum += p.Chips
	}
	if sum != total {
		t.Errorf("Chips not conserved: expected %d total, got %d", total, sum)
	}
}

func TestStartNewHand_PostsBlinds(t *testing.T) {
	r := startedThreePlayerRoom(t)

	state := r.GameState()
	if state.Pot != 30 {
		t.Errorf("Expected pot of 30 after blinds, got %d", state.Pot)
	}
	if state.CurrentBet != DefaultBigBlind {
		t.Errorf("Expected table bet %d, got %d", DefaultBigBlind, state.CurrentBet)
	}
	// Dealer is seat 0, so action opens on the seat after the big blind,
	// which wraps back to seat 0 with three players.
	if state.CurrentPlayer != "a" {
		t.Errorf("Expected action on Alice, got %q", state.CurrentPlayer)
	}
	if len(state.BettingHistory) != 1 || state.BettingHistory[0].Action != "blinds" {
		t.Errorf("Expected a single blinds history entry, got %+v", state.BettingHistory)
	}
	checkChipConservation(t, r, 3*DefaultStartingChips)
}

func TestPerformAction_OutOfTurn(t *testing.T) {
	r := startedThreePlayerRoom(t)

	if _, err := r.PerformAction("b", Check, 0, t0); !errors.Is(err, ErrOutOfTurn) {
		t.Errorf("Expected ErrOutOfTurn, got %v", err)
	}
	if _, err := r.PerformAction("zz", Fold, 0, t0); !errors.Is(err, ErrOutOfTurn) {
		t.Errorf("Expected ErrOutOfTurn for unknown player, got %v", err)
	}
}

func TestPerformAction_InvalidAction(t *testing.T) {
	r := startedThreePlayerRoom(t)

	// Alice faces the big blind: she cannot check, and she cannot open a
	// fresh bet while a bet stands.
	if _, err := r.PerformAction("a", Check, 0, t0); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for check facing a bet, got %v", err)
	}
	if _, err := r.PerformAction("a", Bet, 50, t0); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for bet facing a bet, got %v", err)
	}
}

func TestPerformAction_InvalidAmount(t *testing.T) {
	r := startedThreePlayerRoom(t)

	if _, err := r.PerformAction("a", Raise, 0, t0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for zero raise, got %v", err)
	}
	if _, err := r.PerformAction("a", Raise, 10000, t0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount for raise beyond stack, got %v", err)
	}
	// A rejected action must not have moved any chips or the turn.
	if r.GameState().CurrentPlayer != "a" {
		t.Errorf("Expected turn to stay on Alice, got %q", r.GameState().CurrentPlayer)
	}
	checkChipConservation(t, r, 3*DefaultStartingChips)
}

func TestCallCheckAround_AdvancesRound(t *testing.T) {
	r := startedThreePlayerRoom(t)

	if _, err := r.PerformAction("a", Call, 0, t0); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := r.PerformAction("b", Call, 0, t0); err != nil {
		t.Fatalf("call: %v", err)
	}
	// Big blind checks their option, closing the round.
	if _, err := r.PerformAction("c", Check, 0, t0); err != nil {
		t.Fatalf("check: %v", err)
	}

	state := r.GameState()
	if state.BettingRound != int(Flop) {
		t.Errorf("Expected flop, got round %d", state.BettingRound)
	}
	if state.Pot != 60 {
		t.Errorf("Expected pot 60, got %d", state.Pot)
	}
	if state.CurrentBet != 0 {
		t.Errorf("Expected table bet reset, got %d", state.CurrentBet)
	}
	// New round opens on the seat after the dealer.
	if state.CurrentPlayer != "b" {
		t.Errorf("Expected action on Bob, got %q", state.CurrentPlayer)
	}
	for id, p := range state.Players {
		if p.CurrentBet != 0 {
			t.Errorf("Expected %s round bet reset, got %d", id, p.CurrentBet)
		}
	}
	checkChipConservation(t, r, 3*DefaultStartingChips)
}

func TestRaise_ReopensAction(t *testing.T) {
	r := startedThreePlayerRoom(t)

	// Alice raises 20 on top of the blind. Both blinds must act again.
	if _, err := r.PerformAction("a", Raise, 20, t0); err != nil {
		t.Fatalf("raise: %v", err)
	}
	if got := r.GameState().CurrentBet; got != 40 {
		t.Errorf("Expected table bet 40, got %d", got)
	}
	if _, err := r.PerformAction("b", Call, 0, t0); err != nil {
		t.Fatalf("call: %v", err)
	}
	if r.GameState().BettingRound != int(PreFlop) {
		t.Fatal("Round must not complete while the big blind still faces the raise")
	}
	if _, err := r.PerformAction("c", Call, 0, t0); err != nil {
		t.Fatalf("call: %v", err)
	}

	state := r.GameState()
	if state.BettingRound != int(Flop) {
		t.Errorf("Expected flop after all calls, got round %d", state.BettingRound)
	}
	if state.Pot != 120 {
		t.Errorf("Expected pot 120, got %d", state.Pot)
	}
	checkChipConservation(t, r, 3*DefaultStartingChips)
}

func TestFoldToOnePlayer_EndsHand(t *testing.T) {
	r := startedThreePlayerRoom(t)

	if _, err := r.PerformAction("a", Fold, 0, t0); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if _, err := r.PerformAction("b", Fold, 0, t0); err != nil {
		t.Fatalf("fold: %v", err)
	}

	if r.Winner() != "c" {
		t.Errorf("Expected Charlie to win uncontested, got %q", r.Winner())
	}
	// Charlie posted 20 and collects the 30 in blinds.
	if got := r.Player("c").Chips; got != 1010 {
		t.Errorf("Expected Charlie at 1010 chips, got %d", got)
	}
	if r.GameState().Pot != 0 {
		t.Errorf("Expected pot cleared, got %d", r.GameState().Pot)
	}
	if got := r.GameState().DealerIndex; got != 1 {
		t.Errorf("Expected dealer rotated to 1, got %d", got)
	}
	checkChipConservation(t, r, 3*DefaultStartingChips)
}

func TestFinalRound_FreezesUntilWinnerDeclared(t *testing.T) {
	r := NewRoom("ABCDEF", DefaultConfig(), t0)
	_, _ = r.AddPlayer("a", "Alice", false, t0)
	_, _ = r.AddPlayer("b", "Bob", false, t0)
	if err := r.StartGame("", t0); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Heads-up: Bob posts small blind, Alice posts big blind, Bob opens.
	if _, err := r.PerformAction("b", Call, 0, t0); err != nil {
		t.Fatalf("call: %v", err)
	}
	if _, err := r.PerformAction("a", Check, 0, t0); err != nil {
		t.Fatalf("check: %v", err)
	}
	for round := Flop; round <= River; round++ {
		if got := r.GameState().BettingRound; got != int(round) {
			t.Fatalf("Expected round %d, got %d", round, got)
		}
		if _, err := r.PerformAction("b", Check, 0, t0); err != nil {
			t.Fatalf("check: %v", err)
		}
		if _, err := r.PerformAction("a", Check, 0, t0); err != nil {
			t.Fatalf("check: %v", err)
		}
	}

	// All four rounds are done with two contenders: the hand freezes until
	// the admin declares a winner.
	if got := r.GameState().BettingRound; got != int(AwaitingResolution) {
		t.Fatalf("Expected awaiting resolution, got round %d", got)
	}
	if r.CanAct("a") || r.CanAct("b") {
		t.Error("Nobody may act while the hand awaits resolution")
	}
	if _, err := r.PerformAction("b", Check, 0, t0); !errors.Is(err, ErrOutOfTurn) {
		t.Errorf("Expected ErrOutOfTurn in frozen hand, got %v", err)
	}
	if actions := r.ValidActions("b"); actions != nil {
		t.Errorf("Expected no valid actions in frozen hand, got %v", actions)
	}

	result, err := r.DeclareWinner("a", "b", t0)
	if err != nil {
		t.Fatalf("DeclareWinner: %v", err)
	}
	if result.PotWon != 40 {
		t.Errorf("Expected pot of 40 won, got %d", result.PotWon)
	}
	if got := r.Player("b").Chips; got != 1020 {
		t.Errorf("Expected Bob at 1020 chips, got %d", got)
	}
	checkChipConservation(t, r, 2*DefaultStartingChips)
}

func TestValidActions(t *testing.T) {
	r := startedThreePlayerRoom(t)

	// Alice faces the big blind with a full stack.
	got := r.ValidActions("a")
	want := []Action{Fold, Call, Raise}
	if len(got) != len(want) {
		t.Fatalf("Expected actions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected actions %v, got %v", want, got)
		}
	}

	// Not their turn.
	if actions := r.ValidActions("b"); actions != nil {
		t.Errorf("Expected no actions out of turn, got %v", actions)
	}

	// After a call-around the flop opens with no standing bet.
	_, _ = r.PerformAction("a", Call, 0, t0)
	_, _ = r.PerformAction("b", Call, 0, t0)
	_, _ = r.PerformAction("c", Check, 0, t0)
	got = r.ValidActions("b")
	want = []Action{Fold, Check, Bet}
	if len(got) != len(want) {
		t.Fatalf("Expected actions %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected actions %v, got %v", want, got)
		}
	}
}

func TestShortStack_AllInForLess(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingChips = 100
	r := NewRoom("ABCDEF", cfg, t0)
	_, _ = r.AddPlayer("a", "Alice", false, t0)
	_, _ = r.AddPlayer("b", "Bob", false, t0)
	if err := r.StartGame("", t0); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Hand 1: Bob folds his small blind, leaving Alice up 10.
	if _, err := r.PerformAction("b", Fold, 0, t0); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if got := r.Player("a").Chips; got != 110 {
		t.Fatalf("Expected Alice at 110 chips, got %d", got)
	}
	if err := r.StartNewHand(t0); err != nil {
		t.Fatalf("StartNewHand: %v", err)
	}

	// Hand 2: Bob deals, Alice posts small blind and shoves. Bob cannot
	// cover the call, so his only options are fold or all-in for less.
	if _, err := r.PerformAction("a", Raise, 80, t0); err != nil {
		t.Fatalf("raise: %v", err)
	}
	got := r.ValidActions("b")
	want := []Action{Fold, AllIn}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Expected actions %v, got %v", want, got)
	}

	if _, err := r.PerformAction("b", AllIn, 0, t0); err != nil {
		t.Fatalf("allin: %v", err)
	}
	if !r.Player("b").IsAllIn {
		t.Error("Expected Bob flagged all-in")
	}
	if got := r.Player("b").Chips; got != 0 {
		t.Errorf("Expected Bob at 0 chips, got %d", got)
	}
	// Alice's shove of 100 plus Bob's 90.
	if got := r.GameState().Pot; got != 190 {
		t.Errorf("Expected pot 190, got %d", got)
	}
	checkChipConservation(t, r, 2*cfg.StartingChips)
}

func TestBlinds_ShortStackPostsAllIn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingChips = 15
	r := NewRoom("ABCDEF", cfg, t0)
	_, _ = r.AddPlayer("a", "Alice", false, t0)
	_, _ = r.AddPlayer("b", "Bob", false, t0)
	if err := r.StartGame("", t0); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Alice owes the big blind of 20 but only has 15: she posts her whole
	// stack and is all-in on the blind.
	if got := r.Player("a").CurrentBet; got != 15 {
		t.Errorf("Expected Alice's blind capped at 15, got %d", got)
	}
	if !r.Player("a").IsAllIn {
		t.Error("Expected Alice all-in on the blind")
	}
	if got := r.GameState().CurrentBet; got != 15 {
		t.Errorf("Expected table bet 15, got %d", got)
	}
	checkChipConservation(t, r, 2*cfg.StartingChips)
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"fold", "check", "call", "bet", "raise", "allin"} {
		a, err := ParseAction(s)
		if err != nil {
			t.Errorf("ParseAction(%q): %v", s, err)
		}
		if a.String() != s {
			t.Errorf("ParseAction(%q) round trip gave %q", s, a.String())
		}
	}
	if _, err := ParseAction("shove"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction for unknown action, got %v", err)
	}
}
