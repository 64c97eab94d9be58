package payments

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"delguur.mn/app/internal/modules/orders"
)

const khanSMS = "210*****82 dansand 2,000.00 dungeer orlogiin guilgee hiigdlee. Ognoo: 2026-01-07, Utga: ORD-A7X9 Uldegdel: 183,055.09"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&orders.Order{}, &PaymentLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestReconciler(t *testing.T) (*Reconciler, *orders.Repo, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	repo := orders.NewRepo(db)
	rec := NewReconciler(db, repo)
	rec.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return rec, repo, db
}

func seedPendingOrder(t *testing.T, db *gorm.DB, code, total string) orders.Order {
	t.Helper()
	now := time.Now()
	o := orders.Order{
		ID:            uuid.NewString(),
		TotalAmount:   decimal.RequireFromString(total),
		Currency:      "MNT",
		PaymentCode:   &code,
		PaymentStatus: orders.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return o
}

func TestReconcileMatchesPendingOrder(t *testing.T) {
	rec, repo, db := newTestReconciler(t)
	ctx := context.Background()
	o := seedPendingOrder(t, db, "ORD-A7X9", "2000.00")

	res, err := rec.Ingest(ctx, "5765", khanSMS, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Matched || !res.Automatic || res.OrderID != o.ID {
		t.Fatalf("result = %+v, want automatic match on %s", res, o.ID)
	}

	got, err := repo.Get(ctx, o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PaymentStatus != orders.PaymentPaid {
		t.Errorf("paymentStatus = %q, want paid", got.PaymentStatus)
	}
	if !got.Payment.VerifiedAutomatically || got.Payment.ManuallyMatched {
		t.Errorf("payment details flags = %+v, want automatic", got.Payment)
	}
	if got.Payment.PaymentCode != "ORD-A7X9" || got.Payment.BankName != "Khan Bank" {
		t.Errorf("payment details = %+v", got.Payment)
	}
	if got.Payment.RawSMS != khanSMS {
		t.Error("raw SMS not preserved on the order")
	}

	entry, err := rec.GetLog(ctx, res.LogID)
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if !entry.Matched || !entry.MatchedAutomatically || entry.MatchedOrderID == nil || *entry.MatchedOrderID != o.ID {
		t.Errorf("log entry = %+v, want matched automatically to %s", entry, o.ID)
	}
}

func TestReconcileIsIdempotentOnRedelivery(t *testing.T) {
	rec, repo, db := newTestReconciler(t)
	ctx := context.Background()
	o := seedPendingOrder(t, db, "ORD-A7X9", "2000.00")

	first, err := rec.Ingest(ctx, "5765", khanSMS, time.Now())
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	second, err := rec.Ingest(ctx, "5765", khanSMS, time.Now())
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}

	if !first.Matched {
		t.Fatal("first delivery should match")
	}
	if second.Matched {
		t.Fatal("redelivery must not match again")
	}

	got, _ := repo.Get(ctx, o.ID)
	if got.PaymentStatus != orders.PaymentPaid {
		t.Errorf("paymentStatus = %q after redelivery, want paid", got.PaymentStatus)
	}

	// Both deliveries leave an audit trail.
	var count int64
	db.Model(&PaymentLog{}).Count(&count)
	if count != 2 {
		t.Errorf("payment log count = %d, want 2", count)
	}
}

func TestReconcileOutgoingMessageOnlyLogged(t *testing.T) {
	rec, repo, db := newTestReconciler(t)
	ctx := context.Background()
	o := seedPendingOrder(t, db, "ORD-A7X9", "5000")

	res, err := rec.Ingest(ctx, "5765", "zarlaga: 5,000.00 MNT debited from your account", time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Matched {
		t.Fatal("outgoing message must not match")
	}

	entry, err := rec.GetLog(ctx, res.LogID)
	if err != nil {
		t.Fatalf("log entry missing for rejected message: %v", err)
	}
	if entry.Matched || entry.IsValid {
		t.Errorf("entry = %+v, want unmatched invalid", entry)
	}

	got, _ := repo.Get(ctx, o.ID)
	if got.PaymentStatus != orders.PaymentPending {
		t.Errorf("order touched by outgoing message: status = %q", got.PaymentStatus)
	}
}

func TestReconcileNoCodeShortCircuits(t *testing.T) {
	rec, repo, db := newTestReconciler(t)
	ctx := context.Background()
	o := seedPendingOrder(t, db, "ORD-A7X9", "2000.00")

	res, err := rec.Ingest(ctx, "5765", "dansand 2,000.00 dungeer orlogiin guilgee hiigdlee", time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Matched || res.NeedsReview {
		t.Fatalf("result = %+v, want plain unmatched", res)
	}

	got, _ := repo.Get(ctx, o.ID)
	if got.PaymentStatus != orders.PaymentPending {
		t.Errorf("amount-only message must not complete orders: status = %q", got.PaymentStatus)
	}
}

func TestReconcileDuplicateCodesNeverAutoResolve(t *testing.T) {
	rec, repo, db := newTestReconciler(t)
	ctx := context.Background()

	// The unique index prevents this state in production; drop it to
	// simulate the integrity violation.
	if err := db.Exec("DROP INDEX ux_orders_payment_code").Error; err != nil {
		t.Fatalf("drop index: %v", err)
	}
	a := seedPendingOrder(t, db, "ORD-A7X9", "2000.00")
	b := seedPendingOrder(t, db, "ORD-A7X9", "2000.00")

	res, err := rec.Ingest(ctx, "5765", khanSMS, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Matched {
		t.Fatal("ambiguous code must not auto-match")
	}
	if !res.NeedsReview {
		t.Error("ambiguous code should be flagged for review")
	}

	for _, o := range []orders.Order{a, b} {
		got, _ := repo.Get(ctx, o.ID)
		if got.PaymentStatus != orders.PaymentPending {
			t.Errorf("order %s auto-completed despite ambiguity", o.ID)
		}
	}

	entry, _ := rec.GetLog(ctx, res.LogID)
	if !entry.NeedsReview || entry.ReviewReason == nil {
		t.Errorf("entry = %+v, want review flag with reason", entry)
	}
}

func TestReconcileAmountMismatchGoesToReview(t *testing.T) {
	rec, repo, db := newTestReconciler(t)
	ctx := context.Background()
	o := seedPendingOrder(t, db, "ORD-A7X9", "9999.00")

	res, err := rec.Ingest(ctx, "5765", khanSMS, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Matched {
		t.Fatal("mismatched amount must not auto-complete")
	}
	if !res.NeedsReview {
		t.Error("mismatched amount should be flagged for review")
	}

	got, _ := repo.Get(ctx, o.ID)
	if got.PaymentStatus != orders.PaymentPending {
		t.Errorf("order completed with wrong amount: status = %q", got.PaymentStatus)
	}
}

func TestReconcileAmountWithinTolerance(t *testing.T) {
	rec, _, db := newTestReconciler(t)
	rec.SetAmountTolerance(decimal.RequireFromString("1"))
	ctx := context.Background()
	seedPendingOrder(t, db, "ORD-A7X9", "2000.50")

	res, err := rec.Ingest(ctx, "5765", khanSMS, time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Matched {
		t.Errorf("result = %+v, want match within tolerance", res)
	}
}

func TestManualMatch(t *testing.T) {
	rec, repo, db := newTestReconciler(t)
	ctx := context.Background()

	// Transfer arrived without a usable reference; operator resolves it.
	res, err := rec.Ingest(ctx, "99110022", "credited 2,000.00 MNT from B.Bat", time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Matched {
		t.Fatal("fixture should start unmatched")
	}

	o := seedPendingOrder(t, db, "ORD-B2CD", "2000.00")
	operator := uuid.NewString()

	mres, err := rec.ManualMatch(ctx, res.LogID, o.ID, operator)
	if err != nil {
		t.Fatalf("ManualMatch: %v", err)
	}
	if !mres.Matched || mres.Automatic {
		t.Fatalf("result = %+v, want manual match", mres)
	}

	got, _ := repo.Get(ctx, o.ID)
	if got.PaymentStatus != orders.PaymentPaid {
		t.Errorf("paymentStatus = %q, want paid", got.PaymentStatus)
	}
	if got.Payment.VerifiedAutomatically || !got.Payment.ManuallyMatched {
		t.Errorf("payment flags = %+v, want manual", got.Payment)
	}
	if got.Payment.MatchedBy == nil || *got.Payment.MatchedBy != operator {
		t.Error("matchedBy operator not recorded on the order")
	}

	entry, _ := rec.GetLog(ctx, res.LogID)
	if !entry.Matched || entry.MatchedAutomatically {
		t.Errorf("entry = %+v, want matched manually", entry)
	}
	if entry.MatchedBy == nil || *entry.MatchedBy != operator {
		t.Error("matchedBy operator not recorded on the log entry")
	}

	// Rebinding a matched entry is refused.
	if _, err := rec.ManualMatch(ctx, res.LogID, o.ID, operator); err != ErrAlreadyMatched {
		t.Errorf("second ManualMatch err = %v, want ErrAlreadyMatched", err)
	}
}

func TestManualMatchRefusesPaidOrder(t *testing.T) {
	rec, _, db := newTestReconciler(t)
	ctx := context.Background()

	res, err := rec.Ingest(ctx, "99110022", "credited 2,000.00 MNT from B.Bat", time.Now())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	o := seedPendingOrder(t, db, "ORD-B2CD", "2000.00")
	if err := db.Model(&orders.Order{}).Where("id = ?", o.ID).
		Update("payment_status", orders.PaymentPaid).Error; err != nil {
		t.Fatalf("seed paid status: %v", err)
	}

	if _, err := rec.ManualMatch(ctx, res.LogID, o.ID, uuid.NewString()); err != ErrOrderNotPending {
		t.Errorf("ManualMatch err = %v, want ErrOrderNotPending", err)
	}
}

func TestListLogsFiltersUnmatched(t *testing.T) {
	rec, _, db := newTestReconciler(t)
	ctx := context.Background()
	seedPendingOrder(t, db, "ORD-A7X9", "2000.00")

	if _, err := rec.Ingest(ctx, "5765", khanSMS, time.Now()); err != nil {
		t.Fatalf("Ingest matched: %v", err)
	}
	if _, err := rec.Ingest(ctx, "99110022", "credited 500 MNT no reference", time.Now()); err != nil {
		t.Fatalf("Ingest unmatched: %v", err)
	}

	unmatched := false
	out, err := rec.ListLogs(ctx, ListLogsParams{Matched: &unmatched})
	if err != nil {
		t.Fatalf("ListLogs: %v", err)
	}
	if out.Total != 1 || len(out.Items) != 1 {
		t.Fatalf("unmatched total = %d (items %d), want 1", out.Total, len(out.Items))
	}
	if out.Items[0].Matched {
		t.Error("filter returned a matched entry")
	}
}

func TestOrderRepoCreateAssignsCode(t *testing.T) {
	_, repo, _ := newTestReconciler(t)
	ctx := context.Background()

	o := orders.Order{TotalAmount: decimal.RequireFromString("15000"), Currency: "MNT"}
	if err := repo.Create(ctx, &o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.PaymentCode == nil || len(*o.PaymentCode) != 8 {
		t.Fatalf("paymentCode = %v, want ORD-XXXX", o.PaymentCode)
	}
	if o.PaymentStatus != orders.PaymentPending {
		t.Errorf("paymentStatus = %q, want pending", o.PaymentStatus)
	}
}
