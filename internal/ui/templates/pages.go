package templates

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"orderfront/internal/config"
)

var orderPageTemplate = template.Must(template.New("orderPage").Parse(`<!DOCTYPE html>
<html lang="zh-Hant">
<head>
<meta charset="utf-8">
<title>點餐</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
</head>
<body data-on-load="@get('/sse/menu'); @get('/sse/updates')">
<div id="{{.Ports.NotificationArea}}"></div>
<main class="ordering">
<section>
<h2>菜單</h2>
<div id="{{.Ports.MenuContainer}}"><p class="empty-state">載入菜單中…</p></div>
</section>
<aside>
<h2>購物車</h2>
<div id="{{.Ports.CartItems}}"><p class="empty-state">購物車是空的</p></div>
<p>總計：$<span id="{{.Ports.CartTotal}}">0.00</span></p>
<label>付款金額
<input id="{{.Ports.PaymentAmount}}" type="number" min="0" step="1" data-bind-payment data-on-input="@get('/sse/change')">
</label>
<div id="{{.Ports.ChangeAmount}}"><span class="change-value">找零：$0.00</span></div>
<label>備註
<textarea id="{{.Ports.OrderNotes}}" data-bind-notes></textarea>
</label>
<button id="submit-order-btn" data-on-click="@post('/sse/orders')">送出訂單</button>
<button data-on-click="@post('/sse/cart/clear')">清空購物車</button>
<div id="{{.Ports.OrderStatus}}"></div>
</aside>
</main>
</body>
</html>`))

var analyticsPageTemplate = template.Must(template.New("analyticsPage").Parse(`<!DOCTYPE html>
<html lang="zh-Hant">
<head>
<meta charset="utf-8">
<title>銷售分析</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
<script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
</head>
<body data-on-load="@get('/sse/analytics'); @get('/sse/updates')" data-signals-categorydata="[]" data-signals-loading="false">
<div id="{{.Ports.NotificationArea}}"></div>
<main class="analytics">
<div id="{{.Ports.Loading}}" hidden>載入中…</div>
<span id="{{.Ports.FilterError}}" class="filter-error"></span>
<section class="filters">
<select data-bind-date>
<option value="today">今天</option>
<option value="yesterday">昨天</option>
<option value="last_7_days">最近 7 天</option>
<option value="custom">自訂日期</option>
</select>
<input type="text" placeholder="YYYY-MM-DD" data-bind-customdate>
<select id="{{.Ports.CategoryFilter}}" data-bind-category>
<option value="all">全部類別</option>
</select>
<button id="refresh-btn" data-on-click="@get('/sse/analytics')" data-attr-disabled="$loading">重新整理</button>
<button id="export-btn" data-on-click="window.location.href = '/export/sales.csv'" data-attr-disabled="$loading">匯出 CSV</button>
</section>
<section class="summary">
<p>訂單數：<span id="{{.Ports.TotalOrders}}">0</span></p>
<p>總銷售額：<span id="{{.Ports.TotalRevenue}}">$0.00</span></p>
</section>
<table id="{{.Ports.SalesTable}}" class="modern-table"></table>
<div id="{{.Ports.CategoryChart}}"></div>
</main>
</body>
</html>`))

type pageData struct {
	Ports config.Ports
}

// OrderPage is the ordering host page.
func OrderPage(ports config.Ports) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return orderPageTemplate.Execute(w, pageData{Ports: ports})
	})
}

// AnalyticsPage is the sales dashboard host page.
func AnalyticsPage(ports config.Ports) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return analyticsPageTemplate.Execute(w, pageData{Ports: ports})
	})
}
