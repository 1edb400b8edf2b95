package tokens

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSymbolRequired  = errors.New("tokens: symbol is required")
	ErrSymbolInvalid   = errors.New("tokens: symbol must be 1-12 upper-case letters or digits")
	ErrNameRequired    = errors.New("tokens: name is required")
	ErrAddressRequired = errors.New("tokens: address is required")
	ErrDuplicate       = errors.New("tokens: duplicate descriptor")
	ErrUnknownToken    = errors.New("tokens: unknown token")
)

const maxSymbolLength = 12

// Descriptor identifies a token the marketplace accepts.
type Descriptor struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// NewDescriptor validates and normalizes a descriptor.
func NewDescriptor(symbol, name, address string) (Descriptor, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if symbol == "" {
		return Descriptor{}, ErrSymbolRequired
	}
	if !validSymbol(symbol) {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrSymbolInvalid, symbol)
	}
	if name == "" {
		return Descriptor{}, ErrNameRequired
	}
	if address == "" {
		return Descriptor{}, ErrAddressRequired
	}
	return Descriptor{Symbol: symbol, Name: name, Address: address}, nil
}

func validSymbol(symbol string) bool {
	if len(symbol) == 0 || len(symbol) > maxSymbolLength {
		return false
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// Registry is an immutable, ordered set of descriptors.
type Registry struct {
	ordered   []Descriptor
	bySymbol  map[string]Descriptor
	byAddress map[string]Descriptor
}

// NewRegistry builds a registry rejecting duplicate symbols or addresses.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{
		ordered:   make([]Descriptor, 0, len(descriptors)),
		bySymbol:  make(map[string]Descriptor, len(descriptors)),
		byAddress: make(map[string]Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		checked, err := NewDescriptor(d.Symbol, d.Name, d.Address)
		if err != nil {
			return nil, err
		}
		if _, ok := r.bySymbol[checked.Symbol]; ok {
			return nil, fmt.Errorf("%w: symbol %s", ErrDuplicate, checked.Symbol)
		}
		if _, ok := r.byAddress[checked.Address]; ok {
			return nil, fmt.Errorf("%w: address %s", ErrDuplicate, checked.Address)
		}
		r.ordered = append(r.ordered, checked)
		r.bySymbol[checked.Symbol] = checked
		r.byAddress[checked.Address] = checked
	}
	return r, nil
}

// Default returns the tokens offered by the marketplace out of the box.
func Default() *Registry {
	r, err := NewRegistry(
		Descriptor{Symbol: "USDC", Name: "USD Coin", Address: "USDC_ADDRESS"},
		Descriptor{Symbol: "XLM", Name: "Stellar Lumens", Address: "XLM_ADDRESS"},
		Descriptor{Symbol: "USDT", Name: "Tether USD", Address: "USDT_ADDRESS"},
		Descriptor{Symbol: "BTC", Name: "Bitcoin", Address: "BTC_ADDRESS"},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// All returns descriptors in registration order.
func (r *Registry) All() []Descriptor {
	return append([]Descriptor(nil), r.ordered...)
}

// Symbols returns the registered symbols in order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.ordered))
	for _, d := range r.ordered {
		out = append(out, d.Symbol)
	}
	return out
}

func (r *Registry) Lookup(symbol string) (Descriptor, error) {
	d, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownToken, symbol)
	}
	return d, nil
}

func (r *Registry) ByAddress(address string) (Descriptor, error) {
	d, ok := r.byAddress[strings.TrimSpace(address)]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: address %q", ErrUnknownToken, address)
	}
	return d, nil
}
