package models

// WidgetSnapshot is the reconciled state of one chart widget as exposed
// to the rendering layer.
type WidgetSnapshot struct {
	ID      int              `json:"id"`
	Symbol  string           `json:"symbol"`
	Range   RangeToken       `json:"range"`
	Series  []PricePoint     `json:"series"`
	Markers []Marker         `json:"markers"`
	Tick    *Tick            `json:"tick,omitempty"`
	Status  ConnectionStatus `json:"status"`
}

// SymbolMatch is one autocomplete result from the upstream search endpoint.
type SymbolMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
}

// WidgetsResponse represents the widget listing API response.
type WidgetsResponse struct {
	Widgets []WidgetSnapshot `json:"widgets"`
	Count   int              `json:"count"`
}

// ErrorResponse represents error message structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
