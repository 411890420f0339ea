package dto

type PurchaseCreateRequest struct {
	SKU      string `json:"sku"`
	Provider string `json:"provider"`
}

type PurchaseCreateResponse struct {
	OrderID  int64  `json:"order_id"`
	SKU      string `json:"sku"`
	Provider string `json:"provider"`
	Status   string `json:"status"`
}

type PurchaseWebhookRequest struct {
	OrderID      int64          `json:"order_id"`
	Provider     string         `json:"provider"`
	ProviderTxID string         `json:"provider_tx_id"`
	Status       string         `json:"status"`
	Payload      map[string]any `json:"payload,omitempty"`
}

type PurchaseWebhookResponse struct {
	OrderID          int64  `json:"order_id"`
	SKU              string `json:"sku"`
	Status           string `json:"status"`
	AlreadyProcessed bool   `json:"already_processed"`
}
