package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cozzyhub/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process implementation of the account and affiliate
// stores with the same semantics as Store. It backs `serve --memory` and tests.
type MemoryStore struct {
	mu sync.RWMutex

	users      map[string]*models.User
	profiles   map[string]*models.Profile
	affiliates map[string]*models.Affiliate
	products   map[string]*models.Product
	links      map[string]*models.ProductAffiliateLink
	clicks     []models.AffiliateClick
	sales      []models.AffiliateSale

	// MarkAuthorizedErr, when set, is returned by MarkAuthorized without
	// touching state.
	MarkAuthorizedErr error
	// CreateProfileErrs are returned by successive CreateProfile calls.
	CreateProfileErrs []error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      map[string]*models.User{},
		profiles:   map[string]*models.Profile{},
		affiliates: map[string]*models.Affiliate{},
		products:   map[string]*models.Product{},
		links:      map[string]*models.ProductAffiliateLink{},
	}
}

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// accounts

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.ID = newID(u.ID)
	u.CreatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateProfile(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.CreateProfileErrs) > 0 {
		err := m.CreateProfileErrs[0]
		m.CreateProfileErrs = m.CreateProfileErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := m.profiles[p.ID]; ok {
		return ErrDuplicate
	}
	if p.AuthToken != nil {
		for _, other := range m.profiles {
			if other.AuthToken != nil && *other.AuthToken == *p.AuthToken {
				return ErrDuplicate
			}
		}
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *MemoryStore) ProfileByID(_ context.Context, id string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ProfileByAuthToken(_ context.Context, token string) (*models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.profiles {
		if p.AuthToken != nil && *p.AuthToken == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) LookupAuthToken(ctx context.Context, token string) error {
	_, err := m.ProfileByAuthToken(ctx, token)
	return err
}

func (m *MemoryStore) MarkAuthorized(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkAuthorizedErr != nil {
		return m.MarkAuthorizedErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	if !p.IsAuthorized {
		p.IsAuthorized = true
		p.AuthorizedAt = &at
		p.UpdatedAt = at
	}
	return nil
}

// SetAdmin is a test and bootstrap helper.
func (m *MemoryStore) SetAdmin(id string, admin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		p.IsAdmin = admin
	}
}

// affiliates

func (m *MemoryStore) AffiliateByUserID(_ context.Context, userID string) (*models.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.affiliates {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) AffiliateByID(_ context.Context, id string) (*models.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.affiliates[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) ActiveAffiliateByCode(_ context.Context, code string) (*models.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.affiliates {
		if a.ReferralCode == code && a.Status == models.AffiliateStatusActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.affiliates {
		if a.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) CreateAffiliate(_ context.Context, a *models.Affiliate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.affiliates {
		if other.UserID == a.UserID || other.ReferralCode == a.ReferralCode {
			return ErrDuplicate
		}
	}
	a.ID = newID(a.ID)
	if a.Status == "" {
		a.Status = models.AffiliateStatusPending
	}
	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	m.affiliates[a.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateAffiliateStatus(_ context.Context, id string, status models.AffiliateStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.affiliates[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ListAffiliates(_ context.Context, status string) ([]models.Affiliate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Affiliate
	for _, a := range m.affiliates {
		if status == "" || string(a.Status) == status {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AddProduct registers a product for link issuance lookups.
func (m *MemoryStore) AddProduct(p models.Product) *models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = newID(p.ID)
	m.products[p.ID] = &p
	return &p
}

func (m *MemoryStore) ProductByID(_ context.Context, id string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ActiveLink(_ context.Context, affiliateID, productID string) (*models.ProductAffiliateLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.links {
		if l.AffiliateID == affiliateID && l.ProductID == productID && l.IsActive {
			cp := *l
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ActiveLinkByCode(_ context.Context, code string) (*models.ProductAffiliateLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.links {
		if l.LinkCode == code && l.IsActive {
			a, ok := m.affiliates[l.AffiliateID]
			if !ok {
				return nil, ErrNotFound
			}
			cp := *l
			aff := *a
			cp.Affiliate = &aff
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateLink(_ context.Context, l *models.ProductAffiliateLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.links {
		if other.LinkCode == l.LinkCode {
			return ErrDuplicate
		}
	}
	l.ID = newID(l.ID)
	l.CreatedAt = time.Now()
	cp := *l
	m.links[l.ID] = &cp
	return nil
}

func (m *MemoryStore) ListLinks(_ context.Context, affiliateID string) ([]models.ProductAffiliateLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ProductAffiliateLink
	for _, l := range m.links {
		if l.AffiliateID != affiliateID {
			continue
		}
		cp := *l
		if p, ok := m.products[l.ProductID]; ok {
			prod := *p
			cp.Product = &prod
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) DeactivateLink(_ context.Context, affiliateID, linkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[linkID]
	if !ok || l.AffiliateID != affiliateID {
		return ErrNotFound
	}
	l.IsActive = false
	return nil
}

func (m *MemoryStore) GenerateLinkCode(_ context.Context, referralCode, productID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	base := LinkCodeBase(referralCode, productID)
	for i := 1; i <= 50; i++ {
		code := base
		if i > 1 {
			code = fmt.Sprintf("%s-%d", base, i)
		}
		taken := false
		for _, l := range m.links {
			if l.LinkCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free link code for %s", base)
}

func (m *MemoryStore) CreateClick(_ context.Context, c *models.AffiliateClick) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = newID(c.ID)
	c.CreatedAt = time.Now()
	m.clicks = append(m.clicks, *c)
	return nil
}

// Clicks returns a copy of every recorded click.
func (m *MemoryStore) Clicks() []models.AffiliateClick {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AffiliateClick(nil), m.clicks...)
}

func (m *MemoryStore) RecordSale(_ context.Context, sale *models.AffiliateSale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.OrderID == sale.OrderID {
			return ErrDuplicate
		}
	}
	sale.ID = newID(sale.ID)
	sale.CreatedAt = time.Now()
	if sale.Status == "" {
		sale.Status = models.SaleStatusPending
	}
	m.sales = append(m.sales, *sale)
	if a, ok := m.affiliates[sale.AffiliateID]; ok {
		a.TotalSales++
		a.TotalEarnings += sale.CommissionAmount
	}
	return nil
}

// Sales returns a copy of every recorded sale.
func (m *MemoryStore) Sales() []models.AffiliateSale {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AffiliateSale(nil), m.sales...)
}

func (m *MemoryStore) RefreshCounters(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		a.TotalClicks, a.TotalSales, a.TotalEarnings = 0, 0, 0
	}
	for _, c := range m.clicks {
		if a, ok := m.affiliates[c.AffiliateID]; ok {
			a.TotalClicks++
		}
	}
	for _, s := range m.sales {
		if s.Status == models.SaleStatusCancelled {
			continue
		}
		if a, ok := m.affiliates[s.AffiliateID]; ok {
			a.TotalSales++
			a.TotalEarnings += s.CommissionAmount
		}
	}
	return int64(len(m.affiliates)), nil
}
