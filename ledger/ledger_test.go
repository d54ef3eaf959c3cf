package ledger

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zentex/zentex/pkg/fixedpoint"
)

func setupLedger(t *testing.T) *Ledger {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// In-memory sqlite is per-connection; keep the pool at one.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	l := New(db)
	if err := l.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return l
}

// deposit posts an external inflow: the member account is credited and
// the platform omnibus account debited, so the entry stays balanced.
func deposit(t *testing.T, l *Ledger, account *Account, amount string) {
	t.Helper()

	omnibus, err := l.EnsureAccount(PlatformMemberID, account.Currency)
	if err != nil {
		t.Fatalf("ensure omnibus: %v", err)
	}

	a := fixedpoint.MustParse(amount)
	_, err = l.PostEntry("deposit", "test", []LineInput{
		{AccountID: account.ID, Currency: account.Currency, Amount: a},
		{AccountID: omnibus.ID, Currency: account.Currency, Amount: a.Neg()},
	})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func TestEnsureAccountIdempotent(t *testing.T) {
	l := setupLedger(t)

	first, err := l.EnsureAccount(7, "usdt")
	if err != nil {
		t.Fatalf("EnsureAccount: %v", err)
	}
	second, err := l.EnsureAccount(7, "usdt")
	if err != nil {
		t.Fatalf("EnsureAccount again: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("EnsureAccount created a duplicate: %d vs %d", first.ID, second.ID)
	}

	other, err := l.EnsureAccount(7, "btc")
	if err != nil {
		t.Fatalf("EnsureAccount other currency: %v", err)
	}
	if other.ID == first.ID {
		t.Error("distinct currencies must map to distinct accounts")
	}
}

func TestEnsureAccountPlatformMemberIsDistinct(t *testing.T) {
	l := setupLedger(t)

	member, err := l.EnsureAccount(1, "usdt")
	if err != nil {
		t.Fatalf("EnsureAccount member: %v", err)
	}
	fee, err := l.EnsureAccount(PlatformMemberID, "usdt")
	if err != nil {
		t.Fatalf("EnsureAccount platform: %v", err)
	}

	if fee.ID == member.ID {
		t.Fatalf("platform account aliases member account %d", member.ID)
	}
	if fee.MemberID != PlatformMemberID {
		t.Fatalf("platform account member id = %d, want %d", fee.MemberID, PlatformMemberID)
	}

	again, err := l.EnsureAccount(PlatformMemberID, "usdt")
	if err != nil {
		t.Fatalf("EnsureAccount platform again: %v", err)
	}
	if again.ID != fee.ID {
		t.Errorf("platform account not idempotent: %d vs %d", fee.ID, again.ID)
	}

	// A deposit drawn from the omnibus account must credit the member
	// only; with the accounts confused, both lines land on one row and
	// the member cannot reserve funds afterwards.
	deposit(t, l, member, "100")

	posted, _ := l.PostedBalance(member.ID, "usdt")
	if posted.String() != "100" {
		t.Errorf("member posted = %s, want 100", posted)
	}
	omnibusPosted, _ := l.PostedBalance(fee.ID, "usdt")
	if omnibusPosted.String() != "-100" {
		t.Errorf("omnibus posted = %s, want -100", omnibusPosted)
	}

	if _, err := l.CreateHold(member.ID, "usdt", fixedpoint.MustParse("60")); err != nil {
		t.Fatalf("CreateHold after deposit: %v", err)
	}
}

func TestPostEntryRejectsUnbalancedLines(t *testing.T) {
	l := setupLedger(t)
	account, _ := l.EnsureAccount(1, "usdt")

	_, err := l.PostEntry("transfer", "bad", []LineInput{
		{AccountID: account.ID, Currency: "usdt", Amount: fixedpoint.MustParse("10")},
	})
	if !errors.Is(err, ErrUnbalancedLines) {
		t.Fatalf("want ErrUnbalancedLines, got %v", err)
	}

	_, err = l.PostEntry("transfer", "empty", nil)
	if !errors.Is(err, ErrUnbalancedLines) {
		t.Fatalf("empty entry: want ErrUnbalancedLines, got %v", err)
	}

	// Nothing may be partially applied.
	posted, err := l.PostedBalance(account.ID, "usdt")
	if err != nil {
		t.Fatalf("PostedBalance: %v", err)
	}
	if !posted.IsZero() {
		t.Errorf("posted balance after rejected entries = %s, want 0", posted)
	}
}

func TestPostEntryBalancesPerCurrency(t *testing.T) {
	l := setupLedger(t)
	alice, _ := l.EnsureAccount(1, "usdt")
	bob, _ := l.EnsureAccount(2, "usdt")
	aliceBtc, _ := l.EnsureAccount(1, "btc")
	bobBtc, _ := l.EnsureAccount(2, "btc")

	// One entry touching two currencies; each must net to zero on its own.
	_, err := l.PostEntry("trade", "t1", []LineInput{
		{AccountID: alice.ID, Currency: "usdt", Amount: fixedpoint.MustParse("50").Neg()},
		{AccountID: bob.ID, Currency: "usdt", Amount: fixedpoint.MustParse("50")},
		{AccountID: aliceBtc.ID, Currency: "btc", Amount: fixedpoint.MustParse("5")},
		{AccountID: bobBtc.ID, Currency: "btc", Amount: fixedpoint.MustParse("5").Neg()},
	})
	if err != nil {
		t.Fatalf("PostEntry: %v", err)
	}

	// Zero net per entry but nonzero per currency is rejected.
	_, err = l.PostEntry("trade", "t2", []LineInput{
		{AccountID: alice.ID, Currency: "usdt", Amount: fixedpoint.MustParse("1").Neg()},
		{AccountID: bobBtc.ID, Currency: "btc", Amount: fixedpoint.MustParse("1")},
	})
	if !errors.Is(err, ErrUnbalancedLines) {
		t.Fatalf("cross-currency entry: want ErrUnbalancedLines, got %v", err)
	}

	posted, _ := l.PostedBalance(bob.ID, "usdt")
	if posted.String() != "50" {
		t.Errorf("bob usdt posted = %s, want 50", posted)
	}
}

func TestCreateHoldInsufficientBalance(t *testing.T) {
	l := setupLedger(t)
	account, _ := l.EnsureAccount(1, "usdt")
	deposit(t, l, account, "100")

	if _, err := l.CreateHold(account.ID, "usdt", fixedpoint.MustParse("100.000000000000000001")); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}

	// A rejected hold must not reserve anything.
	available, _ := l.AvailableBalance(account.ID, "usdt")
	if available.String() != "100" {
		t.Errorf("available after rejected hold = %s, want 100", available)
	}
}

func TestHoldLifecycle(t *testing.T) {
	l := setupLedger(t)
	account, _ := l.EnsureAccount(1, "usdt")
	deposit(t, l, account, "100")

	hold, err := l.CreateHold(account.ID, "usdt", fixedpoint.MustParse("60"))
	if err != nil {
		t.Fatalf("CreateHold: %v", err)
	}

	available, _ := l.AvailableBalance(account.ID, "usdt")
	if available.String() != "40" {
		t.Fatalf("available with active hold = %s, want 40", available)
	}

	// The second reservation may not overdraw what the first left.
	if _, err := l.CreateHold(account.ID, "usdt", fixedpoint.MustParse("50")); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overlapping hold: want ErrInsufficientBalance, got %v", err)
	}

	if err := l.ConsumeHold(hold.ID, fixedpoint.MustParse("61")); !errors.Is(err, ErrHoldExhausted) {
		t.Fatalf("over-consume: want ErrHoldExhausted, got %v", err)
	}

	if err := l.ConsumeHold(hold.ID, fixedpoint.MustParse("25")); err != nil {
		t.Fatalf("ConsumeHold: %v", err)
	}

	available, _ = l.AvailableBalance(account.ID, "usdt")
	if available.String() != "65" {
		t.Errorf("available after partial consume = %s, want 65", available)
	}

	released, err := l.ReleaseHold(hold.ID)
	if err != nil {
		t.Fatalf("ReleaseHold: %v", err)
	}
	if released.Status != HoldStatusReleased || !released.ReleasedAt.Valid {
		t.Errorf("hold not marked released: %+v", released)
	}

	available, _ = l.AvailableBalance(account.ID, "usdt")
	if available.String() != "100" {
		t.Errorf("available after release = %s, want 100", available)
	}

	// Consuming a released hold is an orchestration bug.
	if err := l.ConsumeHold(hold.ID, fixedpoint.MustParse("1")); !errors.Is(err, ErrHoldNotActive) {
		t.Errorf("consume after release: want ErrHoldNotActive, got %v", err)
	}
}

func TestConsumeToZeroKeepsHoldActive(t *testing.T) {
	l := setupLedger(t)
	account, _ := l.EnsureAccount(1, "usdt")
	deposit(t, l, account, "10")

	hold, err := l.CreateHold(account.ID, "usdt", fixedpoint.MustParse("10"))
	if err != nil {
		t.Fatalf("CreateHold: %v", err)
	}

	if err := l.ConsumeHold(hold.ID, fixedpoint.MustParse("10")); err != nil {
		t.Fatalf("ConsumeHold: %v", err)
	}

	var reread Hold
	if err := l.db.First(&reread, hold.ID).Error; err != nil {
		t.Fatalf("reload hold: %v", err)
	}
	if reread.Status != HoldStatusActive {
		t.Errorf("fully consumed hold status = %s, want active", reread.Status)
	}
	if !reread.Remaining.IsZero() {
		t.Errorf("remaining = %s, want 0", reread.Remaining)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := setupLedger(t)
	account, _ := l.EnsureAccount(1, "usdt")
	deposit(t, l, account, "10")

	hold, _ := l.CreateHold(account.ID, "usdt", fixedpoint.MustParse("4"))

	if _, err := l.ReleaseHold(hold.ID); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if _, err := l.ReleaseHold(hold.ID); err != nil {
		t.Fatalf("second release: %v", err)
	}

	available, _ := l.AvailableBalance(account.ID, "usdt")
	if available.String() != "10" {
		t.Errorf("available after double release = %s, want 10", available)
	}
}

// Value is never created or destroyed internally: across any sequence of
// balanced entries, per-currency line sums over all accounts stay zero.
func TestConservation(t *testing.T) {
	l := setupLedger(t)
	alice, _ := l.EnsureAccount(1, "usdt")
	bob, _ := l.EnsureAccount(2, "usdt")
	fee, _ := l.EnsureAccount(PlatformMemberID, "usdt")

	deposit(t, l, alice, "100")
	deposit(t, l, bob, "25.5")

	_, err := l.PostEntry("transfer", "x1", []LineInput{
		{AccountID: alice.ID, Currency: "usdt", Amount: fixedpoint.MustParse("30.15").Neg()},
		{AccountID: bob.ID, Currency: "usdt", Amount: fixedpoint.MustParse("30")},
		{AccountID: fee.ID, Currency: "usdt", Amount: fixedpoint.MustParse("0.15")},
	})
	if err != nil {
		t.Fatalf("PostEntry: %v", err)
	}

	var lines []JournalLine
	if err := l.db.Where("currency = ?", "usdt").Find(&lines).Error; err != nil {
		t.Fatalf("load lines: %v", err)
	}

	total := fixedpoint.Zero
	for _, line := range lines {
		total = total.Add(line.Amount)
	}
	if !total.IsZero() {
		t.Errorf("usdt lines sum to %s, want 0", total)
	}

	alicePosted, _ := l.PostedBalance(alice.ID, "usdt")
	if alicePosted.String() != "69.85" {
		t.Errorf("alice posted = %s, want 69.85", alicePosted)
	}
	bobPosted, _ := l.PostedBalance(bob.ID, "usdt")
	if bobPosted.String() != "55.5" {
		t.Errorf("bob posted = %s, want 55.5", bobPosted)
	}
}
