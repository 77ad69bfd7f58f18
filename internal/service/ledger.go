package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"study-planner/internal/model"
)

// Award is the outcome of a single xp award.
type Award struct {
	DidLevelUp     bool
	NewLevel       int
	StreakExtended bool
	NewStreak      int
	XP             int
}

// Ledger owns xp, level and streak of user profiles.
type Ledger struct {
	storage StorageConfig
	now     func() time.Time
	loc     *time.Location

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func NewLedger(storage StorageConfig, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{
		storage: storage,
		now:     time.Now,
		loc:     loc,
		locks:   make(map[string]*userLock),
	}
}

// WithClock replaces the time source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// GetProfile loads the profile, creating it with defaults on first access.
func (l *Ledger) GetProfile(ctx context.Context, uid string) (model.Profile, error) {
	unlock := l.lock(uid)
	defer unlock()
	return l.getOrCreate(ctx, uid)
}

// getOrCreate must be called with the uid lock held.
func (l *Ledger) getOrCreate(ctx context.Context, uid string) (model.Profile, error) {
	repo, remote := l.storage.profiles()
	profile, ok, err := repo.Get(ctx, uid)
	if err != nil {
		return model.Profile{}, wrap("get profile", remote, err)
	}
	if ok {
		return profile, nil
	}
	profile = model.NewProfile(uid)
	if err := repo.Put(ctx, profile); err != nil {
		return model.Profile{}, wrap("create profile", remote, err)
	}
	return profile, nil
}

// AwardXP adds amount to the user's xp, recomputes the level and advances the
// daily streak. Awards for the same uid are applied one at a time.
func (l *Ledger) AwardXP(ctx context.Context, uid string, amount int) (Award, error) {
	if amount < 0 {
		return Award{}, fmt.Errorf("%w: %d", ErrInvalidAward, amount)
	}

	unlock := l.lock(uid)
	defer unlock()

	profile, err := l.getOrCreate(ctx, uid)
	if err != nil {
		return Award{}, err
	}

	now := l.now()
	oldLevel := model.Level(profile.XP)
	newStreak := nextStreak(profile.Streak, profile.LastActive, now, l.loc)
	newXP := profile.XP + amount
	newLevel := model.Level(newXP)

	award := Award{
		DidLevelUp:     newLevel > oldLevel,
		NewLevel:       newLevel,
		StreakExtended: newStreak > profile.Streak,
		NewStreak:      newStreak,
		XP:             newXP,
	}

	profile.XP = newXP
	profile.Level = newLevel
	profile.Streak = newStreak
	active := now.UTC()
	profile.LastActive = &active

	repo, remote := l.storage.profiles()
	if err := repo.Put(ctx, profile); err != nil {
		return Award{}, wrap("award xp", remote, err)
	}
	return award, nil
}

// UpdatePlan overwrites the user's plan.
func (l *Ledger) UpdatePlan(ctx context.Context, uid string, plan model.Plan) error {
	return l.mutate(ctx, uid, "update plan", func(p *model.Profile) {
		p.Plan = plan
	})
}

// UpdateProfile merges display fields.
func (l *Ledger) UpdateProfile(ctx context.Context, uid string, patch model.ProfilePatch) error {
	return l.mutate(ctx, uid, "update profile", patch.Apply)
}

// DeleteUserData removes every task of the user from all stores, then the profile.
func (l *Ledger) DeleteUserData(ctx context.Context, uid string) error {
	unlock := l.lock(uid)
	defer unlock()

	if err := l.storage.Local.DeleteByOwner(ctx, uid); err != nil {
		return wrap("delete user tasks", false, err)
	}
	if l.storage.RemoteAvailable && l.storage.Remote != nil {
		if err := l.storage.Remote.DeleteByOwner(ctx, uid); err != nil {
			return wrap("delete user tasks", true, err)
		}
	}

	repo, remote := l.storage.profiles()
	return wrap("delete profile", remote, repo.Delete(ctx, uid))
}

// GetLeaderboard returns the top n profiles by xp.
func (l *Ledger) GetLeaderboard(ctx context.Context, n int) ([]model.Profile, error) {
	if n <= 0 {
		return []model.Profile{}, nil
	}
	repo, remote := l.storage.profiles()
	profiles, err := repo.Top(ctx, n)
	if err != nil {
		return nil, wrap("leaderboard", remote, err)
	}
	return profiles, nil
}

// Profiles lists every stored profile.
func (l *Ledger) Profiles(ctx context.Context) ([]model.Profile, error) {
	repo, remote := l.storage.profiles()
	profiles, err := repo.List(ctx)
	if err != nil {
		return nil, wrap("list profiles", remote, err)
	}
	return profiles, nil
}

func (l *Ledger) mutate(ctx context.Context, uid, op string, fn func(*model.Profile)) error {
	unlock := l.lock(uid)
	defer unlock()

	profile, err := l.getOrCreate(ctx, uid)
	if err != nil {
		return err
	}
	fn(&profile)
	profile.Level = model.Level(profile.XP)

	repo, remote := l.storage.profiles()
	return wrap(op, remote, repo.Put(ctx, profile))
}

// lock serialises writers of one uid and drops the entry once unused.
func (l *Ledger) lock(uid string) func() {
	l.mu.Lock()
	ul, ok := l.locks[uid]
	if !ok {
		ul = &userLock{}
		l.locks[uid] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, uid)
		}
		l.mu.Unlock()
	}
}

// nextStreak applies the calendar-day streak rules. A negative day difference
// (clock moved backwards) counts as the same day.
func nextStreak(current int, lastActive *time.Time, now time.Time, loc *time.Location) int {
	if lastActive == nil {
		return 1
	}
	switch days := calendarDays(*lastActive, now, loc); {
	case days <= 0:
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

// calendarDays counts calendar-day boundaries between from and to in loc.
func calendarDays(from, to time.Time, loc *time.Location) int {
	fy, fm, fd := from.In(loc).Date()
	ty, tm, td := to.In(loc).Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// CompletionXP is the award for completing a task of the given priority.
func CompletionXP(priority model.Priority) int {
	switch priority {
	case model.PriorityHigh:
		return 100
	case model.PriorityLow:
		return 25
	default:
		return 50
	}
}
