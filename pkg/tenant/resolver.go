package tenant

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/metrics"
)

// ErrStoreNotFound means the host belongs to no live store.
var ErrStoreNotFound = errors.New("store not found for host")

// Resolution is the store that owns a request host.
type Resolution struct {
	StoreID uint   `json:"store_id"`
	Slug    string `json:"slug"`
	Host    string `json:"host"`

	// IsSubdomain is true when the store was reached on <slug>.<base>.
	IsSubdomain bool `json:"is_subdomain"`
	// PrimaryDomain is the canonical host: the primary custom domain if one
	// is configured, the platform subdomain otherwise.
	PrimaryDomain string `json:"primary_domain"`
	// NeedsCanonicalRedirect is set when a store with a primary custom
	// domain is reached on its platform subdomain.
	NeedsCanonicalRedirect bool `json:"needs_canonical_redirect"`
}

// CanonicalURL builds the redirect target on the primary domain, keeping the
// original path and query string.
func (r *Resolution) CanonicalURL(scheme, originalURL string) string {
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + r.PrimaryDomain + originalURL
}

type Resolver struct {
	db         *gorm.DB
	baseDomain string
	cache      Cache
	log        *zap.Logger
}

// NewResolver creates a resolver for stores under baseDomain. cache may be nil.
func NewResolver(db *gorm.DB, baseDomain string, cache Cache, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		db:         db,
		baseDomain: NormalizeHost(baseDomain),
		cache:      cache,
		log:        log,
	}
}

func (r *Resolver) BaseDomain() string {
	return r.baseDomain
}

// ResolveStore maps a Host header to the store that owns it.
func (r *Resolver) ResolveStore(ctx context.Context, rawHost string) (*Resolution, error) {
	host := NormalizeHost(rawHost)
	if host == "" || IsPlatformRoot(host, r.baseDomain) {
		metrics.TenantResolutions.WithLabelValues("not_found").Inc()
		return nil, ErrStoreNotFound
	}

	if r.cache != nil {
		res, ok, err := r.cache.Get(ctx, host)
		if err != nil {
			r.log.Warn("tenant cache read failed", zap.String("host", host), zap.Error(err))
		} else if ok {
			metrics.TenantResolutions.WithLabelValues("cache_hit").Inc()
			return res, nil
		}
	}

	res, err := r.lookup(ctx, host)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			metrics.TenantResolutions.WithLabelValues("not_found").Inc()
		}
		return nil, err
	}

	switch {
	case res.NeedsCanonicalRedirect:
		metrics.TenantResolutions.WithLabelValues("redirect").Inc()
	case res.IsSubdomain:
		metrics.TenantResolutions.WithLabelValues("subdomain").Inc()
	default:
		metrics.TenantResolutions.WithLabelValues("custom_domain").Inc()
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, host, res); err != nil {
			r.log.Warn("tenant cache write failed", zap.String("host", host), zap.Error(err))
		}
	}
	return res, nil
}

func (r *Resolver) lookup(ctx context.Context, host string) (*Resolution, error) {
	db := r.db.WithContext(ctx)

	var store model.Store
	label, isSubdomain := ExtractSubdomain(host, r.baseDomain)
	if isSubdomain {
		result := db.Where("slug = ?", label).Limit(1).Find(&store)
		if result.Error != nil {
			return nil, fmt.Errorf("find store by slug: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrStoreNotFound
		}
	} else {
		var domain model.StoreDomain
		result := db.Where("hostname = ?", host).Order("id").Limit(1).Find(&domain)
		if result.Error != nil {
			return nil, fmt.Errorf("find store domain: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrStoreNotFound
		}
		result = db.Where("id = ?", domain.StoreID).Limit(1).Find(&store)
		if result.Error != nil {
			return nil, fmt.Errorf("find store by domain: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, ErrStoreNotFound
		}
	}

	primary, err := r.primaryDomain(ctx, &store)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		StoreID:                store.ID,
		Slug:                   store.Slug,
		Host:                   host,
		IsSubdomain:            isSubdomain,
		PrimaryDomain:          primary,
		NeedsCanonicalRedirect: isSubdomain && primary != host,
	}, nil
}

// primaryDomain returns the store's primary custom domain, or its platform
// subdomain when none is configured.
func (r *Resolver) primaryDomain(ctx context.Context, store *model.Store) (string, error) {
	var domain model.StoreDomain
	result := r.db.WithContext(ctx).
		Where("store_id = ? AND is_primary = ?", store.ID, true).
		Limit(1).
		Find(&domain)
	if result.Error != nil {
		return "", fmt.Errorf("find primary domain: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.SubdomainHost(r.baseDomain), nil
	}
	return domain.Hostname, nil
}

// Invalidate drops cached resolutions for hosts.
func (r *Resolver) Invalidate(ctx context.Context, hosts ...string) {
	if r.cache == nil || len(hosts) == 0 {
		return
	}
	normalized := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = NormalizeHost(h); h != "" {
			normalized = append(normalized, h)
		}
	}
	if err := r.cache.Delete(ctx, normalized...); err != nil {
		r.log.Warn("tenant cache invalidation failed", zap.Strings("hosts", normalized), zap.Error(err))
	}
}

// InvalidateStore drops cached resolutions for every host the store has ever
// been reachable on, including soft-deleted domains.
func (r *Resolver) InvalidateStore(ctx context.Context, storeID uint) error {
	if r.cache == nil {
		return nil
	}

	var store model.Store
	if err := r.db.WithContext(ctx).Unscoped().First(&store, storeID).Error; err != nil {
		return fmt.Errorf("load store for invalidation: %w", err)
	}
	var domains []model.StoreDomain
	if err := r.db.WithContext(ctx).Unscoped().Where("store_id = ?", storeID).Find(&domains).Error; err != nil {
		return fmt.Errorf("load domains for invalidation: %w", err)
	}

	hosts := []string{store.SubdomainHost(r.baseDomain)}
	for _, d := range domains {
		hosts = append(hosts, d.Hostname)
	}
	r.Invalidate(ctx, hosts...)
	return nil
}
