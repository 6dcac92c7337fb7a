package model

// PaymentMethod describes a payment method offered through the gateway.
// The methods differ only in data (method id, source currency, display
// strings, amount limits); the reconciliation logic is identical across
// them, so there is no per-method type.
type PaymentMethod struct {
	ID             string  `json:"id"`
	SourceCurrency string  `json:"source_currency"`
	DisplayName    string  `json:"display_name"`
	Description    string  `json:"description"`
	MinAmount      float64 `json:"min_amount"` // zero means no minimum
	MaxAmount      float64 `json:"max_amount"` // zero means no maximum
}

// Title returns the customer-facing gateway title.
func (m *PaymentMethod) Title() string {
	return "Nocks - " + m.DisplayName
}

// WithinLimits reports whether an order total falls inside the method's
// configured amount window.
func (m *PaymentMethod) WithinLimits(total float64) bool {
	if m.MinAmount > 0 && total < m.MinAmount {
		return false
	}
	if m.MaxAmount > 0 && total > m.MaxAmount {
		return false
	}
	return true
}

// DefaultMethods are the methods the gateway ships with.
func DefaultMethods() []PaymentMethod {
	return []PaymentMethod{
		{ID: "bitcoin", SourceCurrency: "BTC", DisplayName: "Bitcoin", Description: "Pay with Bitcoin"},
		{ID: "ethereum", SourceCurrency: "ETH", DisplayName: "Ethereum", Description: "Pay with Ethereum"},
		{ID: "litecoin", SourceCurrency: "LTC", DisplayName: "Litecoin", Description: "Pay with Litecoin"},
	}
}

// MethodRegistry resolves method ids to their configuration records.
type MethodRegistry struct {
	methods map[string]PaymentMethod
}

// NewMethodRegistry builds a registry from the given methods.
func NewMethodRegistry(methods []PaymentMethod) *MethodRegistry {
	r := &MethodRegistry{methods: make(map[string]PaymentMethod, len(methods))}
	for _, m := range methods {
		r.methods[m.ID] = m
	}
	return r
}

// Lookup returns the method for id, or nil when the id is not registered.
func (r *MethodRegistry) Lookup(id string) *PaymentMethod {
	m, ok := r.methods[id]
	if !ok {
		return nil
	}
	return &m
}

// IDs returns the registered method ids.
func (r *MethodRegistry) IDs() []string {
	ids := make([]string, 0, len(r.methods))
	for id := range r.methods {
		ids = append(ids, id)
	}
	return ids
}
