package refdata

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/apexpos/admin/internal/platform/cache"
	"github.com/apexpos/admin/internal/shared"
)

// Service serves option lists through a versioned Redis cache.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	audit  *shared.AuditLogger
	logger *slog.Logger

	// memo holds the last Catalog while Watch keeps it coherent.
	mu       sync.RWMutex
	watching bool
	memo     map[Kind][]string
}

// NewService wires the service. cache and audit may be nil.
func NewService(repo Repository, c *cache.Versioned, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, audit: audit, logger: logger}
}

// List returns the options of kind in display order.
func (s *Service) List(ctx context.Context, kind Kind) ([]Option, error) {
	if !kind.Extendable() {
		if _, ok := fixed[kind]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		return fixedOptions(kind), nil
	}
	key, err := s.cache.BuildKey(ctx, "options", string(kind))
	if err != nil {
		s.logger.Warn("refdata cache key failed", slog.Any("error", err))
		return s.repo.List(ctx, kind)
	}
	var options []Option
	err = s.cache.FetchJSON(ctx, key, &options, func(ctx context.Context) (any, error) {
		return s.repo.List(ctx, kind)
	})
	if err != nil {
		return nil, fmt.Errorf("refdata: list %s: %w", kind, err)
	}
	return options, nil
}

// Catalog loads every list concurrently, keyed by kind.
func (s *Service) Catalog(ctx context.Context) (map[Kind][]string, error) {
	if memo, ok := s.memoized(); ok {
		return memo, nil
	}
	var mu sync.Mutex
	out := make(map[Kind][]string, len(Kinds()))
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range Kinds() {
		g.Go(func() error {
			options, err := s.List(ctx, kind)
			if err != nil {
				return err
			}
			mu.Lock()
			out[kind] = Values(options)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.watching {
		s.memo = copyCatalog(out)
	}
	s.mu.Unlock()
	return out, nil
}

// Watch keeps an in-process copy of the catalog and drops it whenever any
// instance announces a new cache version. It returns once subscribed.
func (s *Service) Watch(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	err := s.cache.Subscribe(ctx, func(version int64) {
		s.logger.Debug("refdata cache invalidated", slog.Int64("version", version))
		s.forget()
	})
	if err != nil {
		return fmt.Errorf("refdata: watch: %w", err)
	}
	s.mu.Lock()
	s.watching = true
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		s.watching = false
		s.memo = nil
		s.mu.Unlock()
	}()
	return nil
}

func (s *Service) memoized() (map[Kind][]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.memo == nil {
		return nil, false
	}
	return copyCatalog(s.memo), true
}

func (s *Service) forget() {
	s.mu.Lock()
	s.memo = nil
	s.mu.Unlock()
}

func copyCatalog(in map[Kind][]string) map[Kind][]string {
	out := make(map[Kind][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Add appends a trimmed value to an extendable list and invalidates the cache.
func (s *Service) Add(ctx context.Context, kind Kind, value string) (Option, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Option{}, ErrEmptyOption
	}
	if !kind.Extendable() {
		if _, ok := fixed[kind]; !ok {
			return Option{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
		}
		return Option{}, fmt.Errorf("%w: %s", ErrFixedKind, kind)
	}
	current, err := s.repo.List(ctx, kind)
	if err != nil {
		return Option{}, fmt.Errorf("refdata: add %s: %w", kind, err)
	}
	if containsFold(current, value) {
		return Option{}, fmt.Errorf("%w: %s %q", ErrDuplicateOption, kind, value)
	}
	created, err := s.repo.Insert(ctx, kind, value)
	if err != nil {
		if isDuplicate(err) {
			return Option{}, err
		}
		return Option{}, fmt.Errorf("refdata: add %s: %w", kind, err)
	}
	s.forget()
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("refdata cache bump failed", slog.Any("error", err))
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    shared.ActorFromContext(ctx),
			Action:   "option.add",
			Entity:   string(kind),
			EntityID: fmt.Sprint(created.ID),
			Meta:     map[string]any{"value": value},
		})
		if err != nil {
			s.logger.Warn("refdata audit failed", slog.Any("error", err))
		}
	}
	return created, nil
}
