// Package directory resolves inbound sender identities to known parties.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/propsignal/tenant-assistant/internal/model"
)

// Directory holds the tenant and contractor registries plus the configured
// landlord destinations. Lookups normalize phone numbers so provider
// formatting differences (whatsapp: prefixes, stray spaces) do not create
// unknown senders.
type Directory struct {
	mu          sync.RWMutex
	tenants     map[string]*model.Tenant     // keyed by normalized phone
	contractors map[string]*model.Contractor // keyed by normalized phone
	landlords   []string
}

// New creates a directory with the given landlord destinations.
func New(landlordNumbers []string) *Directory {
	landlords := make([]string, 0, len(landlordNumbers))
	for _, n := range landlordNumbers {
		if n = NormalizePhone(n); n != "" {
			landlords = append(landlords, n)
		}
	}
	return &Directory{
		tenants:     make(map[string]*model.Tenant),
		contractors: make(map[string]*model.Contractor),
		landlords:   landlords,
	}
}

// NormalizePhone strips provider prefixes and formatting from a phone
// identity.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "whatsapp:")
	if i := strings.IndexByte(phone, '@'); i >= 0 {
		phone = phone[:i]
	}
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RegisterTenant adds a tenant to the registry.
func (d *Directory) RegisterTenant(ctx context.Context, req *model.RegisterTenantRequest) (*model.Tenant, error) {
	phone := NormalizePhone(req.Phone)
	if phone == "" {
		return nil, fmt.Errorf("tenant phone is required")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("tenant name is required")
	}

	tenant := &model.Tenant{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      req.Name,
		Phone:     phone,
		Unit:      req.Unit,
		AutoReply: req.AutoReply,
		CreatedAt: time.Now(),
	}

	d.mu.Lock()
	d.tenants[phone] = tenant
	d.mu.Unlock()

	return tenant, nil
}

// RegisterContractor adds a contractor to the registry.
func (d *Directory) RegisterContractor(ctx context.Context, req *model.RegisterContractorRequest) (*model.Contractor, error) {
	phone := NormalizePhone(req.Phone)
	if phone == "" {
		return nil, fmt.Errorf("contractor phone is required")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("contractor name is required")
	}

	contractor := &model.Contractor{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      req.Name,
		Phone:     phone,
		Trade:     req.Trade,
		CreatedAt: time.Now(),
	}

	d.mu.Lock()
	d.contractors[phone] = contractor
	d.mu.Unlock()

	return contractor, nil
}

// FindTenantByPhone returns the tenant registered under the identity, or
// nil when unknown.
func (d *Directory) FindTenantByPhone(phone string) *model.Tenant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tenants[NormalizePhone(phone)]
}

// FindTenantByID returns the tenant with the given id, or nil.
func (d *Directory) FindTenantByID(id string) *model.Tenant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.tenants {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// FindContractorByPhone returns the contractor registered under the
// identity, or nil when unknown.
func (d *Directory) FindContractorByPhone(phone string) *model.Contractor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.contractors[NormalizePhone(phone)]
}

// IsLandlord reports whether the identity is a configured landlord number.
func (d *Directory) IsLandlord(phone string) bool {
	phone = NormalizePhone(phone)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range d.landlords {
		if n == phone {
			return true
		}
	}
	return false
}

// Landlords returns all configured landlord destinations.
func (d *Directory) Landlords() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, len(d.landlords))
	copy(out, d.landlords)
	return out
}

// ListTenants returns all registered tenants.
func (d *Directory) ListTenants() []model.Tenant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Tenant, 0, len(d.tenants))
	for _, t := range d.tenants {
		out = append(out, *t)
	}
	return out
}

// ListContractors returns all registered contractors.
func (d *Directory) ListContractors() []model.Contractor {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]model.Contractor, 0, len(d.contractors))
	for _, c := range d.contractors {
		out = append(out, *c)
	}
	return out
}
