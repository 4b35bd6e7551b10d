// Package registry holds the static catalog of known buyer systems. The
// registry is consumed, not managed, by this service: entries come from a
// YAML file shipped with the deployment.
package registry

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Transfer protocols a buyer system may declare.
const (
	ProtocolCXML = "cxml"
	ProtocolOCI  = "oci"
)

// BuyerSystem is one registered procurement platform.
type BuyerSystem struct {
	Identity     string `mapstructure:"identity"`
	Name         string `mapstructure:"name"`
	Protocol     string `mapstructure:"protocol"`
	ReturnURL    string `mapstructure:"return_url"`
	SharedSecret string `mapstructure:"shared_secret"`
}

// Registry is an immutable lookup table of buyer systems by identity.
type Registry struct {
	byIdentity map[string]BuyerSystem
}

// Load reads the registry file. Missing file is an error: a catalog with no
// registered buyers cannot hand an order back to anyone.
func Load(path string) (*Registry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var entries []BuyerSystem
	if err := v.UnmarshalKey("buyer_systems", &entries); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return New(entries)
}

// New builds a registry from entries, validating each one.
func New(entries []BuyerSystem) (*Registry, error) {
	byIdentity := make(map[string]BuyerSystem, len(entries))
	for _, e := range entries {
		e.Identity = strings.TrimSpace(e.Identity)
		e.Protocol = strings.ToLower(strings.TrimSpace(e.Protocol))
		if e.Identity == "" {
			return nil, fmt.Errorf("registry entry with empty identity")
		}
		if e.Protocol != ProtocolCXML && e.Protocol != ProtocolOCI {
			return nil, fmt.Errorf("buyer %s: unsupported protocol %q", e.Identity, e.Protocol)
		}
		if strings.TrimSpace(e.ReturnURL) == "" {
			return nil, fmt.Errorf("buyer %s: return_url required", e.Identity)
		}
		if _, dup := byIdentity[e.Identity]; dup {
			return nil, fmt.Errorf("duplicate buyer identity %s", e.Identity)
		}
		byIdentity[e.Identity] = e
	}
	return &Registry{byIdentity: byIdentity}, nil
}

// Lookup returns the buyer system for an identity.
func (r *Registry) Lookup(identity string) (BuyerSystem, bool) {
	bs, ok := r.byIdentity[identity]
	return bs, ok
}

// Identities lists the registered buyer identities, for logging at startup.
func (r *Registry) Identities() []string {
	out := make([]string, 0, len(r.byIdentity))
	for id := range r.byIdentity {
		out = append(out, id)
	}
	return out
}
