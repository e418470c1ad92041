// Package permission maps a terminal user's role to the capabilities that
// control what the gateway shows them.  Capabilities gate visibility only;
// the upstream API re-checks every request it receives.
package permission

import (
	"sort"
	"strings"
	"sync"
)

// Capability strings.
const (
	All             = "*"
	DashboardView   = "dashboard:view"
	POSView         = "pos:view"
	InventoryView   = "inventory:view"
	InventoryManage = "inventory:manage"
	OrdersView      = "orders:view"
	CustomersView   = "customers:view"
	CashierView     = "cashier:view"
)

var roleCapabilities = map[string][]string{
	"admin":        {All},
	"manager":      {DashboardView, POSView, InventoryView, OrdersView, CustomersView},
	"waiter":       {POSView, OrdersView, CustomersView},
	"bartender":    {POSView, OrdersView, CustomersView},
	"store keeper": {InventoryManage, InventoryView},
	"cashier":      {POSView, OrdersView, CashierView},
}

// Set is an immutable capability set.  The zero Set grants nothing.
type Set struct {
	caps map[string]struct{}
}

// New builds a set holding caps.
func New(caps ...string) Set {
	m := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		if c = strings.TrimSpace(c); c != "" {
			m[c] = struct{}{}
		}
	}
	return Set{caps: m}
}

// FromRole returns the static capability set for role.  Role matching is
// case-insensitive; unknown roles get an empty set.
func FromRole(role string) Set {
	return New(roleCapabilities[strings.ToLower(strings.TrimSpace(role))]...)
}

// Has reports whether p is granted.  "*" grants everything.
func (s Set) Has(p string) bool {
	if _, ok := s.caps[All]; ok {
		return true
	}
	_, ok := s.caps[p]
	return ok
}

// HasAny reports whether at least one of ps is granted.
func (s Set) HasAny(ps ...string) bool {
	if _, ok := s.caps[All]; ok {
		return true
	}
	for _, p := range ps {
		if _, ok := s.caps[p]; ok {
			return true
		}
	}
	return false
}

// List returns the capabilities in sorted order.
func (s Set) List() []string {
	out := make([]string, 0, len(s.caps))
	for c := range s.caps {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Resolver computes sets once per (user, branch, role, claimed list) and
// hands the same immutable value back afterwards.
type Resolver struct {
	cache sync.Map
}

// Resolve returns the capabilities of user acting in branch.  Without a
// branch nothing is granted.  A non-nil claimed list is a server-delivered
// capability set and takes the place of the static role map.
func (r *Resolver) Resolve(user, branch, role string, claimed []string) Set {
	if branch == "" {
		return Set{}
	}
	key := user + "\x00" + branch + "\x00" + strings.ToLower(role)
	if claimed != nil {
		key += "\x00" + strings.Join(claimed, ",")
	}
	if v, ok := r.cache.Load(key); ok {
		return v.(Set)
	}
	var s Set
	if claimed != nil {
		s = New(claimed...)
	} else {
		s = FromRole(role)
	}
	v, _ := r.cache.LoadOrStore(key, s)
	return v.(Set)
}
