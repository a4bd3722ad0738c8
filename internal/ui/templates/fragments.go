// Package templates renders the HTML the gateway patches into the
// host page. Fragment roots carry the view-port element ids from
// configuration; patching works by id, so the ids are the whole
// contract with the host template.
package templates

import (
	"fmt"
	"html/template"
	"strings"

	"orderfront/internal/config"
	"orderfront/internal/models"
	"orderfront/internal/notify"
	"orderfront/internal/ordering"
)

var menuTemplate = template.Must(template.New("menu").Parse(`
<div id="{{.PortID}}">
{{if not .Groups}}<p class="empty-state">目前沒有菜單項目</p>{{else}}
{{range .Groups}}<section class="menu-category">
<h3>{{.Category}}</h3>
<div class="menu-items">
{{range .Items}}<div class="menu-card" data-on-click="@post('/sse/cart/items/{{.ID}}')">
<span class="item-name">{{.Name}}</span>
{{if .Description}}<span class="item-desc">{{.Description}}</span>{{end}}
<span class="item-price">${{printf "%.2f" .Price}}</span>
</div>{{end}}
</div>
</section>{{end}}
{{end}}
</div>`))

var cartTemplate = template.Must(template.New("cart").Parse(`
<div id="{{.PortID}}">
{{if not .Lines}}<p class="empty-state">購物車是空的</p>{{else}}
{{range $i, $line := .Lines}}<div class="cart-line">
<span class="line-name">{{.Name}}</span>
<span class="line-price">${{printf "%.2f" .Price}}</span>
<button data-on-click="@post('/sse/cart/lines/{{$i}}/decrease')">-</button>
<span class="line-qty">{{.Quantity}}</span>
<button data-on-click="@post('/sse/cart/lines/{{$i}}/increase')">+</button>
<button class="remove" data-on-click="@post('/sse/cart/lines/{{$i}}/remove')">刪除</button>
</div>{{end}}
{{end}}
</div>`))

var totalTemplate = template.Must(template.New("total").Parse(
	`<span id="{{.PortID}}">{{printf "%.2f" .Total}}</span>`))

var changeTemplate = template.Must(template.New("change").Parse(`
<div id="{{.PortID}}">
<span class="change-value">找零：${{printf "%.2f" .Change}}</span>
{{if .Shortfall}}<span class="shortfall">金額不足，還差 {{.Shortfall}}</span>{{end}}
</div>`))

var orderStatusTemplate = template.Must(template.New("orderStatus").Parse(`
<div id="{{.PortID}}">
{{if .OrderNumber}}<p class="order-confirmed">訂單已送出，訂單編號：{{.OrderNumber}}</p>{{end}}
</div>`))

var notificationsTemplate = template.Must(template.New("notifications").Parse(`
<div id="{{.PortID}}">
{{range .Notifications}}<div class="notification {{.Level}}" data-on-click="@post('/sse/notifications/{{.ID}}/dismiss')">{{.Message}}</div>
{{end}}</div>`))

var summaryTemplate = template.Must(template.New("summary").Parse(
	`<span id="{{.OrdersPortID}}">{{.TotalOrders}}</span><span id="{{.RevenuePortID}}">${{printf "%.2f" .TotalRevenue}}</span>`))

var salesTableTemplate = template.Must(template.New("salesTable").Parse(`
<table id="{{.PortID}}" class="modern-table">
<thead><tr><th>名稱</th><th>類別</th><th>數量</th><th>總價</th><th>日期</th></tr></thead>
<tbody>
{{range .Items}}<tr>
<td>{{.Name}}</td>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{.Quantity}}</td>
<td><strong>${{printf "%.2f" .TotalPrice}}</strong></td>
<td>{{.Date}}</td>
</tr>{{end}}
</tbody>
</table>`))

var categoryFilterTemplate = template.Must(template.New("categoryFilter").Parse(`
<select id="{{.PortID}}" data-bind-category>
<option value="all">全部類別</option>
{{range .Categories}}<option value="{{.}}">{{.}}</option>
{{end}}</select>`))

var filterErrorTemplate = template.Must(template.New("filterError").Parse(
	`<span id="{{.PortID}}" class="filter-error">{{.Message}}</span>`))

var loadingTemplate = template.Must(template.New("loading").Parse(`
<div id="{{.PortID}}"{{if not .Loading}} hidden{{end}}>載入中…</div>`))

var chartTemplate = template.Must(template.New("chart").Parse(`
<div id="{{.PortID}}" data-chart-generation="{{.Generation}}"></div>`))

// Renderer binds the fragment templates to the configured view ports.
type Renderer struct {
	ports config.Ports
}

func NewRenderer(ports config.Ports) *Renderer {
	return &Renderer{ports: ports}
}

func (r *Renderer) Menu(groups []ordering.MenuGroup) (string, error) {
	return render(menuTemplate, struct {
		PortID string
		Groups []ordering.MenuGroup
	}{r.ports.MenuContainer, groups})
}

func (r *Renderer) Cart(lines []models.CartLine) (string, error) {
	return render(cartTemplate, struct {
		PortID string
		Lines  []models.CartLine
	}{r.ports.CartItems, lines})
}

func (r *Renderer) Total(total float64) (string, error) {
	return render(totalTemplate, struct {
		PortID string
		Total  float64
	}{r.ports.CartTotal, total})
}

func (r *Renderer) Change(result ordering.ChangeResult) (string, error) {
	return render(changeTemplate, struct {
		PortID string
		ordering.ChangeResult
	}{r.ports.ChangeAmount, result})
}

func (r *Renderer) OrderStatus(orderNumber string) (string, error) {
	return render(orderStatusTemplate, struct {
		PortID      string
		OrderNumber string
	}{r.ports.OrderStatus, orderNumber})
}

func (r *Renderer) Notifications(notifications []notify.Notification) (string, error) {
	return render(notificationsTemplate, struct {
		PortID        string
		Notifications []notify.Notification
	}{r.ports.NotificationArea, notifications})
}

func (r *Renderer) Summary(snapshot *models.AnalyticsSnapshot) (string, error) {
	data := struct {
		OrdersPortID  string
		RevenuePortID string
		TotalOrders   int
		TotalRevenue  float64
	}{r.ports.TotalOrders, r.ports.TotalRevenue, 0, 0}
	if snapshot != nil {
		data.TotalOrders = snapshot.TotalOrders
		data.TotalRevenue = snapshot.TotalRevenue
	}
	return render(summaryTemplate, data)
}

func (r *Renderer) SalesTable(snapshot *models.AnalyticsSnapshot) (string, error) {
	var items []models.AnalyticsItem
	if snapshot != nil {
		items = snapshot.Items
	}
	return render(salesTableTemplate, struct {
		PortID string
		Items  []models.AnalyticsItem
	}{r.ports.SalesTable, items})
}

func (r *Renderer) CategoryFilter(categories []string) (string, error) {
	return render(categoryFilterTemplate, struct {
		PortID     string
		Categories []string
	}{r.ports.CategoryFilter, categories})
}

func (r *Renderer) FilterError(message string) (string, error) {
	return render(filterErrorTemplate, struct {
		PortID  string
		Message string
	}{r.ports.FilterError, message})
}

func (r *Renderer) Loading(loading bool) (string, error) {
	return render(loadingTemplate, struct {
		PortID  string
		Loading bool
	}{r.ports.Loading, loading})
}

// Chart replaces the chart container wholesale; swapping the node is
// what destroys the host's previous chart instance before it redraws
// from the patched category signals.
func (r *Renderer) Chart(generation int64) (string, error) {
	return render(chartTemplate, struct {
		PortID     string
		Generation string
	}{r.ports.CategoryChart, fmt.Sprintf("%d", generation)})
}

func render(t *template.Template, data any) (string, error) {
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
