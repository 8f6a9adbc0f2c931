package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockedby/listingbot/internal/eventlog"
	"github.com/blockedby/listingbot/internal/events"
	"github.com/blockedby/listingbot/internal/logger"
)

// Appender is the append-only log the flattened listing view goes to.
type Appender interface {
	Append(ctx context.Context, rec eventlog.Record) error
}

// LookupPolicy decides how a failed GetByUID is handled on the image path.
type LookupPolicy int

const (
	// LookupPropagate returns lookup errors to the caller.
	LookupPropagate LookupPolicy = iota
	// LookupTreatAsAbsent takes the create path on any lookup error.
	LookupTreatAsAbsent
)

// ParseLookupPolicy maps config values ("propagate", "treat_as_absent").
func ParseLookupPolicy(s string) (LookupPolicy, error) {
	switch s {
	case "", "propagate":
		return LookupPropagate, nil
	case "treat_as_absent":
		return LookupTreatAsAbsent, nil
	}
	return LookupPropagate, fmt.Errorf("unknown listing lookup policy %q", s)
}

// Aggregator merges inbound text and images into per-contact listings.
type Aggregator struct {
	repo     Repository
	mirror   Appender
	log      *logger.Logger
	now      func() time.Time
	locks    *keyLock
	ownerID  string
	prefix   string
	strategy KeyStrategy
	lookup   LookupPolicy
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithOwner sets the owner id stamped on new listings.
func WithOwner(id string) Option { return func(a *Aggregator) { a.ownerID = id } }

// WithUIDPrefix sets the uid prefix.
func WithUIDPrefix(p string) Option { return func(a *Aggregator) { a.prefix = p } }

// WithKeyStrategy sets how the uid is derived from the sender.
func WithKeyStrategy(s KeyStrategy) Option { return func(a *Aggregator) { a.strategy = s } }

// WithLookupPolicy sets how lookup failures are handled.
func WithLookupPolicy(p LookupPolicy) Option { return func(a *Aggregator) { a.lookup = p } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option { return func(a *Aggregator) { a.log = l } }

// WithoutSerialization drops the per-uid lock. Concurrent image updates to
// one uid then race and the later upsert overwrites the earlier one.
func WithoutSerialization() Option { return func(a *Aggregator) { a.locks = nil } }

// NewAggregator creates an aggregator. mirror may be nil.
func NewAggregator(repo Repository, mirror Appender, opts ...Option) *Aggregator {
	a := &Aggregator{
		repo:    repo,
		mirror:  mirror,
		log:     logger.Get(),
		now:     time.Now,
		locks:   newKeyLock(),
		ownerID: "haoshiyou-admin",
		prefix:  "group-collected-",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// UID returns the listing uid for a sender.
func (a *Aggregator) UID(c events.Contact) string {
	return DeriveUID(a.prefix, a.strategy, c)
}

// RecordText stores msg as the listing of its sender, replacing any
// existing record for that uid, and mirrors a flattened view to the log.
func (a *Aggregator) RecordText(ctx context.Context, msg Message, group events.Group) error {
	uid := a.UID(msg.Sender)
	defer a.lock(uid)()

	l := &Listing{
		UID:           uid,
		OwnerID:       a.ownerID,
		Title:         Title(msg.Content),
		Content:       msg.Content,
		Group:         group,
		ContactChatID: msg.Sender.ID,
		LastUpdated:   a.now().UTC(),
	}

	stored, err := a.repo.Upsert(ctx, l)
	if err != nil {
		return fmt.Errorf("upsert listing %s: %w", uid, err)
	}
	if stored == nil {
		stored = l
	}

	a.log.Debug().
		Str("uid", uid).
		Str("group", group.String()).
		Str("title", stored.Title).
		Msg("stored text listing")

	if a.mirror != nil {
		rec := mirrorRecord{
			Kind:          "listing",
			Contact:       msg.Sender.Name,
			GroupNickname: msg.GroupNickname,
			Content:       msg.Content,
		}
		if err := a.mirror.Append(ctx, rec); err != nil {
			return fmt.Errorf("mirror listing %s: %w", uid, err)
		}
	}

	return nil
}

// RecordImage appends imageRef to the sender's listing, creating the
// listing when none exists, and returns what was stored. References are
// kept in arrival order; repeats are stored again.
func (a *Aggregator) RecordImage(ctx context.Context, msg Message, group events.Group, imageRef string) (*Listing, error) {
	uid := a.UID(msg.Sender)
	defer a.lock(uid)()

	existing, err := a.repo.GetByUID(ctx, uid)
	if errors.Is(err, ErrNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		if a.lookup != LookupTreatAsAbsent {
			return nil, fmt.Errorf("get listing %s: %w", uid, err)
		}
		a.log.Warn().Err(err).Str("uid", uid).Msg("listing lookup failed, creating new listing")
		existing = nil
	}

	ts := a.now().UTC()

	var l *Listing
	if existing == nil {
		l = &Listing{
			UID:           uid,
			OwnerID:       a.ownerID,
			Title:         Title(msg.Content),
			Group:         group,
			ContactChatID: msg.Sender.ID,
			ImageIDs:      []string{imageRef},
		}
	} else {
		l = existing.Clone()
		l.ImageIDs = append(l.ImageIDs, imageRef)
		if ts.Before(existing.LastUpdated) {
			ts = existing.LastUpdated
		}
	}
	l.LastUpdated = ts

	a.log.Debug().Str("uid", uid).Str("image", imageRef).Msg("updating listing image")

	stored, err := a.repo.Upsert(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("upsert listing %s: %w", uid, err)
	}
	if stored == nil {
		stored = l
	}

	a.log.Debug().
		Str("uid", uid).
		Int("images", len(stored.ImageIDs)).
		Msg("done updating listing image")

	return stored, nil
}

func (a *Aggregator) lock(uid string) func() {
	if a.locks == nil {
		return func() {}
	}
	return a.locks.Lock(uid)
}
