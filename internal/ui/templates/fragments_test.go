package templates

import (
	"strings"
	"testing"

	"orderfront/internal/config"
	"orderfront/internal/models"
	"orderfront/internal/notify"
	"orderfront/internal/ordering"
)

func testRenderer() *Renderer {
	return NewRenderer(config.Ports{
		MenuContainer:    "menu-container",
		CartItems:        "cart-items",
		CartTotal:        "cart-total",
		PaymentAmount:    "payment-amount",
		ChangeAmount:     "change-amount",
		OrderNotes:       "order-notes",
		OrderStatus:      "order-status",
		NotificationArea: "notification-area",
		Loading:          "loading",
		FilterError:      "filter-error",
		TotalOrders:      "total-orders",
		TotalRevenue:     "total-revenue",
		SalesTable:       "sales-table",
		CategoryFilter:   "category-filter",
		CategoryChart:    "categoryChart",
	})
}

func TestRenderer_Menu_GroupsInFirstSeenOrder(t *testing.T) {
	r := testRenderer()

	html, err := r.Menu(ordering.GroupByCategory([]models.MenuItem{
		{ID: 1, Name: "牛肉麵", Category: "main_dish", Price: 120},
		{ID: 2, Name: "紅茶", Category: "drink", Price: 30},
		{ID: 3, Name: "滷肉飯", Category: "main_dish", Price: 60},
	}))
	if err != nil {
		t.Fatalf("Menu() failed: %v", err)
	}

	if !strings.Contains(html, `id="menu-container"`) {
		t.Error("fragment root should carry the port id")
	}

	mainIdx := strings.Index(html, "main_dish")
	drinkIdx := strings.Index(html, "drink")
	if mainIdx < 0 || drinkIdx < 0 || mainIdx > drinkIdx {
		t.Errorf("categories should render in first-seen order, got %s", html)
	}

	if !strings.Contains(html, "@post('/sse/cart/items/1')") {
		t.Error("menu cards should post to the add-item endpoint")
	}
	if !strings.Contains(html, "$120.00") {
		t.Error("prices should render with two decimals")
	}
}

func TestRenderer_Menu_EmptyState(t *testing.T) {
	r := testRenderer()

	html, err := r.Menu(nil)
	if err != nil {
		t.Fatalf("Menu() failed: %v", err)
	}
	if !strings.Contains(html, "目前沒有菜單項目") {
		t.Errorf("empty catalog should render the empty state, got %s", html)
	}
}

func TestRenderer_Cart(t *testing.T) {
	r := testRenderer()

	html, err := r.Cart([]models.CartLine{
		{ID: 1, Name: "牛肉麵", Price: 120, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("Cart() failed: %v", err)
	}

	if !strings.Contains(html, "@post('/sse/cart/lines/0/increase')") {
		t.Error("cart lines should address operations by index")
	}
	if !strings.Contains(html, "@post('/sse/cart/lines/0/remove')") {
		t.Error("cart lines should carry a remove button")
	}
}

func TestRenderer_Cart_Empty(t *testing.T) {
	r := testRenderer()

	html, err := r.Cart(nil)
	if err != nil {
		t.Fatalf("Cart() failed: %v", err)
	}
	if !strings.Contains(html, "購物車是空的") {
		t.Errorf("empty cart should render the empty state, got %s", html)
	}
}

func TestRenderer_Change(t *testing.T) {
	r := testRenderer()

	html, err := r.Change(ordering.ChangeResult{Total: 100, Payment: 120, Change: 20})
	if err != nil {
		t.Fatalf("Change() failed: %v", err)
	}
	if !strings.Contains(html, "找零：$20.00") {
		t.Errorf("change value missing, got %s", html)
	}
	if strings.Contains(html, "金額不足") {
		t.Error("no shortfall expected for sufficient payment")
	}

	html, err = r.Change(ordering.ChangeResult{Total: 100, Payment: 80, Shortfall: "20.00"})
	if err != nil {
		t.Fatalf("Change() failed: %v", err)
	}
	if !strings.Contains(html, "金額不足，還差 20.00") {
		t.Errorf("shortfall text missing, got %s", html)
	}
}

func TestRenderer_Notifications(t *testing.T) {
	r := testRenderer()

	html, err := r.Notifications([]notify.Notification{
		{ID: "n1", Level: notify.LevelSuccess, Message: "已將「牛肉麵」加入購物車"},
		{ID: "n2", Level: notify.LevelDanger, Message: "送出訂單失敗，請稍後重試"},
	})
	if err != nil {
		t.Fatalf("Notifications() failed: %v", err)
	}

	if !strings.Contains(html, `class="notification success"`) {
		t.Error("level should render as a color class")
	}
	if !strings.Contains(html, "@post('/sse/notifications/n1/dismiss')") {
		t.Error("notifications should be dismissible by click")
	}
}

func TestRenderer_Summary_NilSnapshot(t *testing.T) {
	r := testRenderer()

	html, err := r.Summary(nil)
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	if !strings.Contains(html, `id="total-orders">0<`) || !strings.Contains(html, "$0.00") {
		t.Errorf("nil snapshot should render zeros, got %s", html)
	}
}

func TestRenderer_SalesTable(t *testing.T) {
	r := testRenderer()

	html, err := r.SalesTable(&models.AnalyticsSnapshot{
		Items: []models.AnalyticsItem{
			{Name: "牛肉麵", Category: "main_dish", Quantity: 2, TotalPrice: 240, Date: "2026-08-31"},
		},
	})
	if err != nil {
		t.Fatalf("SalesTable() failed: %v", err)
	}

	for _, want := range []string{"名稱", "類別", "數量", "總價", "日期", "牛肉麵", "$240.00", "2026-08-31"} {
		if !strings.Contains(html, want) {
			t.Errorf("sales table missing %q: %s", want, html)
		}
	}
}

func TestRenderer_CategoryFilter(t *testing.T) {
	r := testRenderer()

	html, err := r.CategoryFilter([]string{"main_dish", "drink"})
	if err != nil {
		t.Fatalf("CategoryFilter() failed: %v", err)
	}

	if !strings.Contains(html, `<option value="all">全部類別</option>`) {
		t.Error("the all option must always be present")
	}
	mainIdx := strings.Index(html, `value="main_dish"`)
	drinkIdx := strings.Index(html, `value="drink"`)
	if mainIdx < 0 || drinkIdx < 0 || mainIdx > drinkIdx {
		t.Errorf("options should keep first-seen order, got %s", html)
	}
}

func TestRenderer_Loading(t *testing.T) {
	r := testRenderer()

	html, err := r.Loading(true)
	if err != nil {
		t.Fatalf("Loading() failed: %v", err)
	}
	if strings.Contains(html, "hidden") {
		t.Error("visible indicator should not be hidden")
	}

	html, err = r.Loading(false)
	if err != nil {
		t.Fatalf("Loading() failed: %v", err)
	}
	if !strings.Contains(html, "hidden") {
		t.Error("idle indicator should be hidden")
	}
}

func TestRenderer_Chart_GenerationChangesNode(t *testing.T) {
	r := testRenderer()

	first, err := r.Chart(1)
	if err != nil {
		t.Fatalf("Chart() failed: %v", err)
	}
	second, err := r.Chart(2)
	if err != nil {
		t.Fatalf("Chart() failed: %v", err)
	}

	if first == second {
		t.Error("successive chart containers must differ so the host redraws")
	}
	if !strings.Contains(first, `data-chart-generation="1"`) {
		t.Errorf("generation attribute missing: %s", first)
	}
}

func TestPages_CarryPortIDs(t *testing.T) {
	ports := config.DefaultPorts()

	var order strings.Builder
	if err := OrderPage(ports).Render(t.Context(), &order); err != nil {
		t.Fatalf("render order page: %v", err)
	}
	for _, id := range []string{ports.MenuContainer, ports.CartItems, ports.CartTotal, ports.OrderStatus, ports.NotificationArea} {
		if !strings.Contains(order.String(), `id="`+id+`"`) {
			t.Errorf("order page missing element id %q", id)
		}
	}

	var dash strings.Builder
	if err := AnalyticsPage(ports).Render(t.Context(), &dash); err != nil {
		t.Fatalf("render analytics page: %v", err)
	}
	for _, id := range []string{ports.SalesTable, ports.CategoryFilter, ports.CategoryChart, ports.Loading, ports.FilterError} {
		if !strings.Contains(dash.String(), `id="`+id+`"`) {
			t.Errorf("analytics page missing element id %q", id)
		}
	}
}

func TestAnalyticsPage_ControlsDisableDuringLoad(t *testing.T) {
	var dash strings.Builder
	if err := AnalyticsPage(config.DefaultPorts()).Render(t.Context(), &dash); err != nil {
		t.Fatalf("render analytics page: %v", err)
	}
	html := dash.String()

	if !strings.Contains(html, `data-signals-loading="false"`) {
		t.Error("page should declare the loading signal")
	}
	for _, id := range []string{"refresh-btn", "export-btn"} {
		idx := strings.Index(html, `id="`+id+`"`)
		if idx < 0 {
			t.Fatalf("control %q missing", id)
		}
		end := strings.Index(html[idx:], ">")
		if tag := html[idx : idx+end]; !strings.Contains(tag, `data-attr-disabled="$loading"`) {
			t.Errorf("control %q should disable while loading, got %s", id, tag)
		}
	}
}
