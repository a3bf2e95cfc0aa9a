package goals

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shunskating/skate-server/internal/catalog"
	"github.com/shunskating/skate-server/internal/progress"
)

// ProgressSource loads an owner's proficiency. *progress.Store satisfies it.
type ProgressSource interface {
	Levels(ctx context.Context, owner string) (progress.Levels, error)
}

// Service generates goals on first access within a period and persists them.
// Generation is seeded from (salt, owner, kind, period), so a period always
// regenerates the same way for the same catalog, progress and settings.
type Service struct {
	store    *Store
	catalog  *catalog.Catalog
	progress ProgressSource
	salt     string
	now      func() time.Time
	flight   singleflight.Group // one generation per owner+kind+period at a time
}

func NewService(st *Store, c *catalog.Catalog, p ProgressSource, salt string) *Service {
	return &Service{store: st, catalog: c, progress: p, salt: salt, now: time.Now}
}

// Get returns the current period's goal of kind k for owner. Custom lines
// are never generated; an untouched one comes back empty.
func (s *Service) Get(ctx context.Context, owner string, k Kind) (Record, error) {
	period := PeriodKey(k, s.now())
	rec, found, err := s.store.Load(ctx, owner, k, period)
	if err != nil || found {
		return rec, err
	}
	if k.Custom() {
		return Record{Owner: owner, Kind: k, Period: period, Tricks: []string{}}, nil
	}
	key := owner + "|" + string(k) + "|" + period
	if _, err, _ := s.flight.Do(key, func() (any, error) {
		return nil, s.generate(ctx, owner, k, period)
	}); err != nil {
		return Record{}, err
	}
	rec, _, err = s.store.Load(ctx, owner, k, period)
	return rec, err
}

// generate creates and stores the period's goal unless another request
// already did.
func (s *Service) generate(ctx context.Context, owner string, k Kind, period string) error {
	if _, found, err := s.store.Load(ctx, owner, k, period); err != nil || found {
		return err
	}
	g, err := s.generator(ctx, owner, Seed(s.salt, owner, string(k), period))
	if err != nil {
		return err
	}
	rec := Record{Owner: owner, Kind: k, Period: period}
	if k == Daily {
		rec.Items = g.DailyPicks()
	} else {
		rec.Line = g.Line(SizeFor(k))
	}
	return s.store.Save(ctx, rec)
}

// modify makes sure the current goal exists, then changes it in one
// transaction.
func (s *Service) modify(ctx context.Context, owner string, k Kind, fn func(*Record) error) (Record, error) {
	cur, err := s.Get(ctx, owner, k)
	if err != nil {
		return Record{}, err
	}
	return s.store.Modify(ctx, owner, k, cur.Period, fn)
}

// ToggleDaily flips the completed flag of a daily item.
func (s *Service) ToggleDaily(ctx context.Context, owner string, index int) (Record, error) {
	return s.modify(ctx, owner, Daily, func(rec *Record) error {
		if index < 0 || index >= len(rec.Items) {
			return fmt.Errorf("toggle %d: %w", index, ErrItemIndex)
		}
		rec.Items[index].Completed = !rec.Items[index].Completed
		return nil
	})
}

// Complete marks a weekly, monthly or custom line as done.
func (s *Service) Complete(ctx context.Context, owner string, k Kind) (Record, error) {
	if k == Daily {
		return Record{}, ErrNotLine
	}
	return s.modify(ctx, owner, k, complete)
}

// Swap replaces one stop of an open generated line with a trick from category.
func (s *Service) Swap(ctx context.Context, owner string, k Kind, index int, category string) (Record, error) {
	if k == Daily || k.Custom() {
		return Record{}, ErrNotLine
	}
	return s.modify(ctx, owner, k, func(rec *Record) error {
		if rec.Completed {
			return ErrCompleted
		}
		g, err := s.generator(ctx, owner, Seed(s.salt, owner, string(k), rec.Period, "swap", strconv.Itoa(rec.Swaps)))
		if err != nil {
			return err
		}
		line, err := g.Swap(rec.Line, index, category)
		if err != nil {
			return err
		}
		rec.Line = line
		rec.Swaps++
		return nil
	})
}

// AddCustom appends a catalog trick to owner's custom line of kind k.
func (s *Service) AddCustom(ctx context.Context, owner string, k Kind, trickID string) (Record, error) {
	if !k.Custom() {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	t, ok := s.catalog.Find(trickID)
	if !ok || !customCategories[t.Category] {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownTrick, trickID)
	}
	return s.store.Modify(ctx, owner, k, PeriodKey(k, s.now()), func(rec *Record) error {
		return addCustom(rec, t.Name)
	})
}

// RemoveCustom drops the trick at index from owner's custom line of kind k.
func (s *Service) RemoveCustom(ctx context.Context, owner string, k Kind, index int) (Record, error) {
	if !k.Custom() {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return s.store.Modify(ctx, owner, k, PeriodKey(k, s.now()), func(rec *Record) error {
		return removeCustom(rec, index)
	})
}

// Settings returns owner's park settings.
func (s *Service) Settings(ctx context.Context, owner string) (Settings, error) {
	return s.store.Settings(ctx, owner)
}

// SaveSettings stores owner's park settings. Existing goals are kept.
func (s *Service) SaveSettings(ctx context.Context, owner string, st Settings) (Settings, error) {
	return s.store.SaveSettings(ctx, owner, st)
}

func (s *Service) generator(ctx context.Context, owner string, seed int64) (*Generator, error) {
	levels, err := s.progress.Levels(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	st, err := s.store.Settings(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return NewGenerator(s.catalog, levels, st, rand.New(rand.NewSource(seed))), nil
}
