package models

// Known order status codes delivered over the push channel.
const (
	StatusPending  = "pending"
	StatusReceived = "received"
	StatusCooking  = "cooking"
	StatusReady    = "ready"
)

var statusLabels = map[string]string{
	StatusPending:  "待處理",
	StatusReceived: "已接單",
	StatusCooking:  "烹調中",
	StatusReady:    "餐點已完成",
}

// StatusLabel maps a status code to its display label. Codes outside
// the fixed enumeration are shown verbatim.
func StatusLabel(code string) string {
	if label, ok := statusLabels[code]; ok {
		return label
	}
	return code
}
