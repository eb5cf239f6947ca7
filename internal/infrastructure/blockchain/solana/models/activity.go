package models

// TokenActivity is one SPL token instruction found in a confirmed transaction.
type TokenActivity struct {
	Type        string `json:"type"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination,omitempty"`
	Authority   string `json:"authority"`
	Mint        string `json:"mint,omitempty"`
	Amount      uint64 `json:"amount"`
	IsInner     bool   `json:"is_inner"`
}
