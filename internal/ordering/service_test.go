package ordering

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"orderfront/internal/models"
	"orderfront/internal/notify"
)

type fakeBackend struct {
	menu        []models.MenuItem
	menuErr     error
	order       *models.Order
	submitErr   error
	submitCalls int
	lastSub     models.OrderSubmission
}

func (f *fakeBackend) Menu(ctx context.Context) ([]models.MenuItem, error) {
	if f.menuErr != nil {
		return nil, f.menuErr
	}
	return f.menu, nil
}

func (f *fakeBackend) SubmitOrder(ctx context.Context, sub models.OrderSubmission) (*models.Order, error) {
	f.submitCalls++
	f.lastSub = sub
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.order, nil
}

type captured struct {
	level   notify.Level
	message string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []captured
}

func (n *recordingNotifier) Notify(sessionID string, level notify.Level, message string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, captured{level: level, message: message})
	return ""
}

func (n *recordingNotifier) last() (captured, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return captured{}, false
	}
	return n.events[len(n.events)-1], true
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testMenu() []models.MenuItem {
	return []models.MenuItem{
		{ID: 1, Name: "牛肉麵", Category: "main_dish", Price: 120},
		{ID: 2, Name: "紅茶", Category: "drink", Price: 30},
		{ID: 3, Name: "滷肉飯", Category: "main_dish", Price: 60},
	}
}

func newTestService(t *testing.T, backend *fakeBackend) (*Service, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := NewService(backend, notifier, testLogger())
	if backend.menu != nil {
		if err := svc.LoadMenu(context.Background(), "s1"); err != nil {
			t.Fatalf("LoadMenu() failed: %v", err)
		}
	}
	return svc, notifier
}

func TestService_AddToCart_TotalIsOrderIndependent(t *testing.T) {
	sequences := [][]int{
		{1, 2, 3, 1, 1, 2},
		{2, 1, 1, 3, 2, 1},
		{3, 2, 2, 1, 1, 1},
	}

	for _, seq := range sequences {
		svc, _ := newTestService(t, &fakeBackend{menu: testMenu()})
		for _, id := range seq {
			svc.AddToCart("s1", id)
		}

		// 3x item 1 + 2x item 2 + 1x item 3
		want := 3*120.0 + 2*30.0 + 60.0
		if got := svc.Total("s1"); got != want {
			t.Errorf("Total() after %v = %v, want %v", seq, got, want)
		}
	}
}

func TestService_AddToCart_AggregatesLines(t *testing.T) {
	svc, notifier := newTestService(t, &fakeBackend{menu: testMenu()})

	svc.AddToCart("s1", 1)
	svc.AddToCart("s1", 1)

	cart := svc.Cart("s1")
	if len(cart) != 1 {
		t.Fatalf("expected 1 cart line, got %d", len(cart))
	}
	if cart[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", cart[0].Quantity)
	}

	last, ok := notifier.last()
	if !ok {
		t.Fatal("expected a success notification")
	}
	if last.level != notify.LevelSuccess {
		t.Errorf("expected success level, got %s", last.level)
	}
	if !strings.Contains(last.message, "牛肉麵") {
		t.Errorf("notification should name the item, got %q", last.message)
	}
}

func TestService_AddToCart_UnknownItemIsNoOp(t *testing.T) {
	svc, notifier := newTestService(t, &fakeBackend{menu: testMenu()})

	if svc.AddToCart("s1", 99) {
		t.Error("AddToCart() with unknown id should return false")
	}
	if len(svc.Cart("s1")) != 0 {
		t.Error("cart should stay empty")
	}
	if _, ok := notifier.last(); ok {
		t.Error("unknown id should not produce a notification")
	}
}

func TestService_DecreaseQuantity_NeverBelowOne(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{menu: testMenu()})
	svc.AddToCart("s1", 1)

	svc.DecreaseQuantity("s1", 0)
	svc.DecreaseQuantity("s1", 0)

	cart := svc.Cart("s1")
	if cart[0].Quantity != 1 {
		t.Errorf("quantity should floor at 1, got %d", cart[0].Quantity)
	}
}

func TestService_RemoveFromCart_DeletesRegardlessOfQuantity(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{menu: testMenu()})
	svc.AddToCart("s1", 1)
	svc.AddToCart("s1", 1)
	svc.AddToCart("s1", 2)

	svc.RemoveFromCart("s1", 0)

	cart := svc.Cart("s1")
	if len(cart) != 1 {
		t.Fatalf("expected 1 line after removal, got %d", len(cart))
	}
	if cart[0].ID != 2 {
		t.Errorf("expected remaining line id 2, got %d", cart[0].ID)
	}
}

func TestService_ClearCart_ResetsCartAndNotes(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{menu: testMenu()})
	svc.AddToCart("s1", 1)
	svc.SetNotes("s1", "不要辣")

	svc.ClearCart("s1")

	if len(svc.Cart("s1")) != 0 {
		t.Error("cart should be empty after clear")
	}
	if svc.Total("s1") != 0 {
		t.Error("total should be 0 after clear")
	}

	// Notes must not leak into the next submission.
	svc.AddToCart("s1", 2)
	backend := &fakeBackend{order: &models.Order{OrderNumber: "20260831120000"}}
	svc.backend = backend
	if _, err := svc.SubmitOrder(context.Background(), "s1", "999"); err != nil {
		t.Fatalf("SubmitOrder() failed: %v", err)
	}
	if backend.lastSub.Notes != "" {
		t.Errorf("notes should be cleared, got %q", backend.lastSub.Notes)
	}
}

func TestService_StaleIndexIsNoOp(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{menu: testMenu()})
	svc.AddToCart("s1", 1)

	svc.IncreaseQuantity("s1", 5)
	svc.DecreaseQuantity("s1", -1)
	svc.RemoveFromCart("s1", 2)

	cart := svc.Cart("s1")
	if len(cart) != 1 || cart[0].Quantity != 1 {
		t.Errorf("stale indices must not mutate the cart, got %+v", cart)
	}
}

func TestService_CalculateChange(t *testing.T) {
	tests := []struct {
		name          string
		payment       string
		wantChange    float64
		wantShortfall string
	}{
		{name: "sufficient payment", payment: "120", wantChange: 20, wantShortfall: ""},
		{name: "exact payment", payment: "100", wantChange: 0, wantShortfall: ""},
		{name: "insufficient payment", payment: "80", wantChange: 0, wantShortfall: "20.00"},
		{name: "unparsable payment", payment: "abc", wantChange: 0, wantShortfall: "100.00"},
		{name: "empty payment", payment: "", wantChange: 0, wantShortfall: "100.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, &fakeBackend{menu: []models.MenuItem{
				{ID: 1, Name: "套餐", Category: "main_dish", Price: 100},
			}})
			svc.AddToCart("s1", 1)

			result := svc.CalculateChange("s1", tt.payment)
			if result.Change != tt.wantChange {
				t.Errorf("Change = %v, want %v", result.Change, tt.wantChange)
			}
			if result.Shortfall != tt.wantShortfall {
				t.Errorf("Shortfall = %q, want %q", result.Shortfall, tt.wantShortfall)
			}
		})
	}
}

func TestService_SubmitOrder_EmptyCart(t *testing.T) {
	backend := &fakeBackend{menu: testMenu()}
	svc, notifier := newTestService(t, backend)

	_, err := svc.SubmitOrder(context.Background(), "s1", "100")
	if err == nil {
		t.Fatal("expected an error for empty cart")
	}
	if backend.submitCalls != 0 {
		t.Errorf("empty cart must not reach the backend, got %d calls", backend.submitCalls)
	}

	last, ok := notifier.last()
	if !ok || last.level != notify.LevelWarning {
		t.Errorf("expected a warning notification, got %+v", last)
	}
}

func TestService_SubmitOrder_InsufficientPayment(t *testing.T) {
	backend := &fakeBackend{menu: testMenu()}
	svc, notifier := newTestService(t, backend)
	svc.AddToCart("s1", 1) // total 120

	_, err := svc.SubmitOrder(context.Background(), "s1", "100")
	if err == nil {
		t.Fatal("expected an error for insufficient payment")
	}
	if backend.submitCalls != 0 {
		t.Errorf("insufficient payment must not reach the backend, got %d calls", backend.submitCalls)
	}

	last, ok := notifier.last()
	if !ok || last.level != notify.LevelDanger {
		t.Errorf("expected a danger notification, got %+v", last)
	}
	if !strings.Contains(last.message, "20.00") {
		t.Errorf("notification should carry the shortfall, got %q", last.message)
	}

	if len(svc.Cart("s1")) != 1 {
		t.Error("cart must stay intact after a rejected submit")
	}
}

func TestService_SubmitOrder_Success(t *testing.T) {
	backend := &fakeBackend{
		menu:  testMenu(),
		order: &models.Order{OrderNumber: "20260831093000"},
	}
	svc, notifier := newTestService(t, backend)
	svc.AddToCart("s1", 1)
	svc.AddToCart("s1", 2)
	svc.SetNotes("s1", "少冰")

	order, err := svc.SubmitOrder(context.Background(), "s1", "200")
	if err != nil {
		t.Fatalf("SubmitOrder() failed: %v", err)
	}
	if order.OrderNumber != "20260831093000" {
		t.Errorf("unexpected order number %q", order.OrderNumber)
	}

	if backend.submitCalls != 1 {
		t.Fatalf("expected exactly 1 backend call, got %d", backend.submitCalls)
	}
	if backend.lastSub.TotalAmount != 150 {
		t.Errorf("submission total = %v, want 150", backend.lastSub.TotalAmount)
	}
	if backend.lastSub.Notes != "少冰" {
		t.Errorf("submission notes = %q", backend.lastSub.Notes)
	}

	if len(svc.Cart("s1")) != 0 {
		t.Error("cart should be cleared after a successful submit")
	}

	last, _ := notifier.last()
	if last.level != notify.LevelSuccess || !strings.Contains(last.message, "20260831093000") {
		t.Errorf("expected success notification with order number, got %+v", last)
	}
}

func TestService_SubmitOrder_BackendFailureKeepsCart(t *testing.T) {
	backend := &fakeBackend{
		menu:      testMenu(),
		submitErr: errors.New("connection refused"),
	}
	svc, notifier := newTestService(t, backend)
	svc.AddToCart("s1", 1)

	_, err := svc.SubmitOrder(context.Background(), "s1", "200")
	if err == nil {
		t.Fatal("expected the backend error to propagate")
	}

	if len(svc.Cart("s1")) != 1 {
		t.Error("cart must stay intact for retry after a failed send")
	}

	last, _ := notifier.last()
	if last.level != notify.LevelDanger {
		t.Errorf("expected a danger notification, got %+v", last)
	}
}

func TestService_LoadMenu_FailureKeepsCatalog(t *testing.T) {
	backend := &fakeBackend{menu: testMenu()}
	svc, notifier := newTestService(t, backend)

	backend.menuErr = errors.New("boom")
	if err := svc.LoadMenu(context.Background(), "s1"); err == nil {
		t.Fatal("expected LoadMenu() to fail")
	}

	if got := len(svc.MenuGroups("s1")); got != 2 {
		t.Errorf("previous catalog should survive a failed reload, got %d groups", got)
	}

	last, _ := notifier.last()
	if last.level != notify.LevelDanger {
		t.Errorf("expected a danger notification, got %+v", last)
	}
}

func TestGroupByCategory_FirstSeenOrder(t *testing.T) {
	items := []models.MenuItem{
		{ID: 1, Category: "A"},
		{ID: 2, Category: "B"},
		{ID: 3, Category: "A"},
	}

	groups := GroupByCategory(items)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Category != "A" || groups[1].Category != "B" {
		t.Errorf("expected first-seen order [A B], got [%s %s]", groups[0].Category, groups[1].Category)
	}
	if len(groups[0].Items) != 2 || groups[0].Items[0].ID != 1 || groups[0].Items[1].ID != 3 {
		t.Errorf("group A should hold items 1 and 3 in order, got %+v", groups[0].Items)
	}
	if len(groups[1].Items) != 1 || groups[1].Items[0].ID != 2 {
		t.Errorf("group B should hold item 2, got %+v", groups[1].Items)
	}
}

func TestGroupByCategory_Empty(t *testing.T) {
	if groups := GroupByCategory(nil); len(groups) != 0 {
		t.Errorf("expected no groups for empty catalog, got %d", len(groups))
	}
}

func TestService_SessionsAreIsolated(t *testing.T) {
	svc, _ := newTestService(t, &fakeBackend{menu: testMenu()})
	if err := svc.LoadMenu(context.Background(), "s2"); err != nil {
		t.Fatalf("LoadMenu() failed: %v", err)
	}

	svc.AddToCart("s1", 1)
	svc.AddToCart("s2", 2)

	if total := svc.Total("s1"); total != 120 {
		t.Errorf("session s1 total = %v, want 120", total)
	}
	if total := svc.Total("s2"); total != 30 {
		t.Errorf("session s2 total = %v, want 30", total)
	}
}
