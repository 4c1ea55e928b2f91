package payments

import (
	"time"

	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/config"
	"github.com/sheelmorjaria/rdjcustoms-payments/pkg/enums"
)

// MethodConfig describes one payment method as offered to shoppers.
type MethodConfig struct {
	Type                  enums.PaymentMethodType
	DisplayName           string
	Enabled               bool
	RequiredConfirmations int
	Expiry                time.Duration
}

// Registry is the immutable set of configured payment methods. It is built
// once at boot; accessors return copies.
type Registry struct {
	methods map[enums.PaymentMethodType]MethodConfig
	order   []enums.PaymentMethodType
}

// NewRegistry derives the method registry from configuration.
func NewRegistry(cfg config.PaymentsConfig) *Registry {
	methods := map[enums.PaymentMethodType]MethodConfig{
		enums.PaymentMethodPayPal: {
			Type:        enums.PaymentMethodPayPal,
			DisplayName: "PayPal",
			Enabled:     cfg.PayPalEnabled,
			Expiry:      cfg.PayPalExpiry,
		},
		enums.PaymentMethodBitcoin: {
			Type:                  enums.PaymentMethodBitcoin,
			DisplayName:           "Bitcoin",
			Enabled:               cfg.BitcoinEnabled,
			RequiredConfirmations: cfg.BitcoinConfirmations,
			Expiry:                cfg.BitcoinExpiry,
		},
		enums.PaymentMethodMonero: {
			Type:                  enums.PaymentMethodMonero,
			DisplayName:           "Monero",
			Enabled:               cfg.MoneroEnabled,
			RequiredConfirmations: cfg.MoneroConfirmations,
			Expiry:                cfg.MoneroExpiry,
		},
	}
	return &Registry{
		methods: methods,
		order: []enums.PaymentMethodType{
			enums.PaymentMethodPayPal,
			enums.PaymentMethodBitcoin,
			enums.PaymentMethodMonero,
		},
	}
}

// Get returns the configuration for a method.
func (r *Registry) Get(method enums.PaymentMethodType) (MethodConfig, bool) {
	if r == nil {
		return MethodConfig{}, false
	}
	cfg, ok := r.methods[method]
	return cfg, ok
}

// Enabled returns the enabled methods in stable display order.
func (r *Registry) Enabled() []MethodConfig {
	if r == nil {
		return nil
	}
	out := make([]MethodConfig, 0, len(r.order))
	for _, method := range r.order {
		if cfg, ok := r.methods[method]; ok && cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out
}
