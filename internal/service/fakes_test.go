package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"study-planner/internal/model"
)

// memTasks is an in-memory TaskRepository that counts calls.
type memTasks struct {
	mu    sync.Mutex
	tasks []model.Task
	calls int
	err   error
}

func (m *memTasks) Insert(_ context.Context, task model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *memTasks) ListByOwner(_ context.Context, userID string) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []model.Task
	for _, task := range m.tasks {
		if task.UserID == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *memTasks) Update(_ context.Context, taskID string, patch model.TaskPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	for i := range m.tasks {
		if m.tasks[i].ID == taskID {
			patch.Apply(&m.tasks[i])
		}
	}
	return nil
}

func (m *memTasks) Delete(_ context.Context, taskID string) error {
	return m.remove(func(task model.Task) bool { return task.ID == taskID })
}

func (m *memTasks) DeleteByOwner(_ context.Context, userID string) error {
	return m.remove(func(task model.Task) bool { return task.UserID == userID })
}

func (m *memTasks) remove(match func(model.Task) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	var kept []model.Task
	for _, task := range m.tasks {
		if !match(task) {
			kept = append(kept, task)
		}
	}
	m.tasks = kept
	return nil
}

func (m *memTasks) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// memProfiles is an in-memory ProfileRepository keeping insertion order.
type memProfiles struct {
	mu       sync.Mutex
	order    []string
	profiles map[string]model.Profile
	err      error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: make(map[string]model.Profile)}
}

func (m *memProfiles) Get(_ context.Context, uid string) (model.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return model.Profile{}, false, m.err
	}
	p, ok := m.profiles[uid]
	return p, ok, nil
}

func (m *memProfiles) Put(_ context.Context, profile model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.profiles[profile.UID]; !ok {
		m.order = append(m.order, profile.UID)
	}
	m.profiles[profile.UID] = profile
	return nil
}

func (m *memProfiles) Delete(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.profiles, uid)
	for i, id := range m.order {
		if id == uid {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memProfiles) List(_ context.Context) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Profile, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.profiles[id])
	}
	return out, nil
}

func (m *memProfiles) Top(ctx context.Context, n int) ([]model.Profile, error) {
	out, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].XP > out[j].XP })
	if n < len(out) {
		out = out[:n]
	}
	return out, nil
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(now time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type backends struct {
	local, remote                 *memTasks
	localProfiles, remoteProfiles *memProfiles
}

func newBackends() *backends {
	return &backends{
		local:          &memTasks{},
		remote:         &memTasks{},
		localProfiles:  newMemProfiles(),
		remoteProfiles: newMemProfiles(),
	}
}

func (b *backends) config(remoteAvailable bool) StorageConfig {
	return StorageConfig{
		Remote:          b.remote,
		Local:           b.local,
		RemoteProfiles:  b.remoteProfiles,
		LocalProfiles:   b.localProfiles,
		RemoteAvailable: remoteAvailable,
	}
}

// gatedProfiles holds the first Put until release is closed.
type gatedProfiles struct {
	*memProfiles
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedProfiles() *gatedProfiles {
	return &gatedProfiles{
		memProfiles: newMemProfiles(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedProfiles) Put(ctx context.Context, profile model.Profile) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memProfiles.Put(ctx, profile)
}
