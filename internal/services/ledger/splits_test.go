package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/openfolio/folio/internal/common"
	"github.com/openfolio/folio/internal/interfaces"
	"github.com/openfolio/folio/internal/models"
)

func newSplitFixture(splits map[string][]models.SplitEvent) (*Service, *memStorage, *fakeMarket) {
	storage := newMemStorage()
	market := &fakeMarket{splits: splits, splitsErr: make(map[string]error)}
	svc := NewService(storage, market, common.NewSilentLogger())
	return svc, storage, market
}

func acctAct(date, typ string, qty, price float64, account string) *models.Activity {
	a := act(date, typ, qty, price, 0)
	a.AccountID = account
	return a
}

func TestReconcileSplits_SynthesizesOnePerHoldingAccount(t *testing.T) {
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {{Date: "2024-06-15", Numerator: 3, Denominator: 1}},
	})
	ctx := context.Background()

	// Two accounts held before the split; one activity sits in the
	// unassigned bucket.
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1"))
	storage.activities.Save(ctx, acctAct("2024-02-01", models.TypeBuy, 5, 100, ""))

	created, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("ReconcileSplits: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2 (one per account)", created)
	}

	synthesized, _ := storage.activities.List(ctx, interfaces.ActivityQuery{Type: models.TypeStockSplit})
	if len(synthesized) != 2 {
		t.Fatalf("stored splits = %d, want 2", len(synthesized))
	}
	byAccount := make(map[string]*models.Activity)
	for _, a := range synthesized {
		byAccount[a.AccountKey()] = a
	}
	if byAccount["acct-1"] == nil || byAccount[models.UnassignedAccount] == nil {
		t.Fatalf("missing per-account splits, got %v", byAccount)
	}
	if byAccount[models.UnassignedAccount].AccountID != "" {
		t.Errorf("unassigned split must keep an empty AccountID, got %q", byAccount[models.UnassignedAccount].AccountID)
	}
	for _, a := range synthesized {
		if a.Date != "2024-06-15" || a.Quantity != 3 || a.Price != 0 {
			t.Errorf("split activity = %+v, want date 2024-06-15 ratio 3 price 0", a)
		}
		if a.ID == "" {
			t.Error("split activity missing generated ID")
		}
	}
}

func TestReconcileSplits_Idempotent(t *testing.T) {
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {{Date: "2024-06-15", Numerator: 2, Denominator: 1}},
	})
	ctx := context.Background()
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1"))

	first, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil || first != 1 {
		t.Fatalf("first run: created=%d err=%v, want 1, nil", first, err)
	}

	second, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second != 0 {
		t.Errorf("second run created %d, want 0", second)
	}
}

func TestReconcileSplits_DedupWindowCoversManualEntry(t *testing.T) {
	// A user-recorded split one day off the authoritative date counts as
	// already applied.
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {{Date: "2024-06-15", Numerator: 2, Denominator: 1}},
	})
	ctx := context.Background()
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1"))
	storage.activities.Save(ctx, acctAct("2024-06-14", models.TypeStockSplit, 2, 0, "acct-1"))

	created, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("ReconcileSplits: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0 (manual split within de-dup window)", created)
	}
}

func TestReconcileSplits_AccountNeverHeldGetsNothing(t *testing.T) {
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {{Date: "2024-06-15", Numerator: 2, Denominator: 1}},
	})
	ctx := context.Background()
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "held"))
	// This account only ever saw a dividend; it never carried units.
	storage.activities.Save(ctx, acctAct("2024-02-01", models.TypeDividend, 10, 1.5, "dividend-only"))

	created, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("ReconcileSplits: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	splits, _ := storage.activities.List(ctx, interfaces.ActivityQuery{Type: models.TypeStockSplit})
	if len(splits) != 1 || splits[0].AccountID != "held" {
		t.Errorf("split went to %+v, want account 'held' only", splits)
	}
}

func TestReconcileSplits_ExitedAccountStillCovered(t *testing.T) {
	// Full exit before the split still gets the split recorded: the ratio on
	// zero quantity is a safe no-op, and re-entries replay correctly.
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {{Date: "2024-06-15", Numerator: 2, Denominator: 1}},
	})
	ctx := context.Background()
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1"))
	storage.activities.Save(ctx, acctAct("2024-03-01", models.TypeSell, 10, 120, "acct-1"))

	created, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("ReconcileSplits: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1 (exited account still held at some point)", created)
	}
}

func TestReconcileSplits_PostSplitBuyersExcluded(t *testing.T) {
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {{Date: "2024-06-15", Numerator: 2, Denominator: 1}},
	})
	ctx := context.Background()
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "early"))
	storage.activities.Save(ctx, acctAct("2024-07-01", models.TypeBuy, 10, 50, "late"))

	created, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("ReconcileSplits: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	splits, _ := storage.activities.List(ctx, interfaces.ActivityQuery{Type: models.TypeStockSplit})
	if splits[0].AccountID != "early" {
		t.Errorf("split assigned to %q, want 'early' (late buyer joined post-split)", splits[0].AccountID)
	}
}

func TestReconcileSplits_IgnoresMalformedEvents(t *testing.T) {
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {
			{Date: "2024-06-15", Numerator: 0, Denominator: 1},
			{Date: "whenever", Numerator: 2, Denominator: 1},
		},
	})
	ctx := context.Background()
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1"))

	created, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("ReconcileSplits: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0 (both events malformed)", created)
	}
}

func TestReconcileSplits_CustomSplitTypeCountsForDedup(t *testing.T) {
	// A user-defined type mapped to SPLIT behavior de-duplicates like the
	// built-in STOCK_SPLIT.
	svc, storage, _ := newSplitFixture(map[string][]models.SplitEvent{
		"VAS.AX": {{Date: "2024-06-15", Numerator: 2, Denominator: 1}},
	})
	ctx := context.Background()
	storage.types.Save(ctx, &models.ActivityType{Name: "CONSOLIDATION", Behavior: models.BehaviorSplit})
	storage.activities.Save(ctx, acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1"))
	storage.activities.Save(ctx, acctAct("2024-06-15", "CONSOLIDATION", 2, 0, "acct-1"))

	created, err := svc.ReconcileSplits(ctx, "VAS.AX")
	if err != nil {
		t.Fatalf("ReconcileSplits: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0 (custom split type already covers it)", created)
	}
}

func TestReconcileAllSplits_ContinuesPastFailingSymbol(t *testing.T) {
	svc, storage, market := newSplitFixture(map[string][]models.SplitEvent{
		"GOOD.AX": {{Date: "2024-06-15", Numerator: 2, Denominator: 1}},
	})
	market.splitsErr["BAD.AX"] = errors.New("provider down")
	ctx := context.Background()

	bad := acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1")
	bad.Symbol = "BAD.AX"
	storage.activities.Save(ctx, bad)
	good := acctAct("2024-01-01", models.TypeBuy, 10, 100, "acct-1")
	good.Symbol = "GOOD.AX"
	storage.activities.Save(ctx, good)

	created, err := svc.ReconcileAllSplits(ctx)
	if err != nil {
		t.Fatalf("ReconcileAllSplits: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1 (failure on BAD.AX is isolated)", created)
	}
}
