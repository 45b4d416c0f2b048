// AngelaMos | 2026
// resolver_test.go

package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/eventhub/internal/core"
)

type memRepo struct {
	mu       sync.Mutex
	profiles map[string]Profile
	failGet  error
	inserts  int
}

func newMemRepo() *memRepo {
	return &memRepo{profiles: make(map[string]Profile)}
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failGet != nil {
		return nil, m.failGet
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &p, nil
}

func (m *memRepo) CreateIfAbsent(_ context.Context, p *Profile) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[p.ID]; ok {
		return false, nil
	}
	now := time.Now()
	stored := *p
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.profiles[p.ID] = stored
	m.inserts++
	return true, nil
}

func (m *memRepo) UpdateRole(
	_ context.Context,
	id string,
	expected, next Role,
) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok || p.Role != expected {
		return nil, core.ErrConflict
	}
	p.Role = next
	p.UpdatedAt = time.Now()
	m.profiles[id] = p
	return &p, nil
}

func (m *memRepo) List(
	_ context.Context,
	params ListProfilesParams,
) ([]Profile, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	params.Normalize()
	var out []Profile
	for _, p := range m.profiles {
		if params.Role != RoleUnknown && p.Role != params.Role {
			continue
		}
		if params.Search != "" &&
			!strings.Contains(strings.ToLower(p.Email), strings.ToLower(params.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, len(out), nil
}

func (m *memRepo) CountByRole(_ context.Context) (map[Role]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := map[Role]int{}
	for _, p := range m.profiles {
		counts[p.Role]++
	}
	return counts, nil
}

var admin = Caller{ID: "admin-1", Email: "admin@eventhub.dev", Role: RoleAdmin}

func TestResolve_CreatesUserProfileOnce(t *testing.T) {
	repo := newMemRepo()
	resolver := NewResolver(repo, nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "u-1", "Alice@Example.com")
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, "u-1", "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, RoleUser, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.inserts)
	assert.Equal(t, "alice@example.com", repo.profiles["u-1"].Email)
}

func TestResolve_ConcurrentFirstLoginsConverge(t *testing.T) {
	repo := newMemRepo()
	resolver := NewResolver(repo, nil)

	var wg sync.WaitGroup
	roles := make([]Role, 16)
	errs := make([]error, 16)
	for i := range roles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roles[i], errs[i] = resolver.Resolve(context.Background(), "u-2", "b@example.com")
		}(i)
	}
	wg.Wait()

	for i := range roles {
		require.NoError(t, errs[i])
		assert.Equal(t, RoleUser, roles[i])
	}
	assert.Equal(t, 1, repo.inserts)
}

func TestRoleOf_StoreUnavailableYieldsUnknown(t *testing.T) {
	repo := newMemRepo()
	repo.failGet = errors.New("connection refused")
	resolver := NewResolver(repo, nil)

	role := resolver.RoleOf(context.Background(), "u-3", "c@example.com")

	assert.Equal(t, RoleUnknown, role)
	assert.Equal(t, "", resolver.RoleName(context.Background(), "u-3", "c@example.com"))
}

func TestEnsureSeedProfiles_SkipsExisting(t *testing.T) {
	repo := newMemRepo()
	resolver := NewResolver(repo, nil)
	ctx := context.Background()

	seeds := []SeedProfile{
		{ID: "admin-seed-uid", Email: "admin@eventhub.dev", Role: RoleAdmin},
		{ID: "hoster-seed-uid", Email: "hoster@eventhub.dev", Role: RoleHoster},
	}

	created, err := resolver.EnsureSeedProfiles(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = resolver.EnsureSeedProfiles(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	role, err := resolver.Resolve(ctx, "hoster-seed-uid", "hoster@eventhub.dev")
	require.NoError(t, err)
	assert.Equal(t, RoleHoster, role)
}

func TestEnsureSeedProfiles_RejectsInvalidRole(t *testing.T) {
	resolver := NewResolver(newMemRepo(), nil)

	_, err := resolver.EnsureSeedProfiles(context.Background(), []SeedProfile{
		{ID: "x", Email: "x@eventhub.dev", Role: Role("Owner")},
	})

	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestUpgradeRole(t *testing.T) {
	tests := []struct {
		name    string
		from    Role
		to      Role
		wantErr error
		want    Role
	}{
		{name: "user to hoster", from: RoleUser, to: RoleHoster, want: RoleHoster},
		{name: "user to admin", from: RoleUser, to: RoleAdmin, want: RoleAdmin},
		{name: "hoster to admin", from: RoleHoster, to: RoleAdmin, want: RoleAdmin},
		{name: "same role is a no-op", from: RoleHoster, to: RoleHoster, want: RoleHoster},
		{name: "hoster to user", from: RoleHoster, to: RoleUser, wantErr: core.ErrInvalidTransition},
		{name: "admin to hoster", from: RoleAdmin, to: RoleHoster, wantErr: core.ErrInvalidTransition},
		{name: "unknown role", from: RoleUser, to: Role("Owner"), wantErr: core.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			repo.profiles["target"] = Profile{ID: "target", Email: "t@example.com", Role: tt.from}
			resolver := NewResolver(repo, nil)

			got, err := resolver.UpgradeRole(context.Background(), admin, "target", tt.to)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, repo.profiles["target"].Role)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Role)
		})
	}
}

func TestUpgradeRole_RequiresAdmin(t *testing.T) {
	repo := newMemRepo()
	repo.profiles["target"] = Profile{ID: "target", Role: RoleUser}
	resolver := NewResolver(repo, nil)

	hoster := Caller{ID: "h-1", Role: RoleHoster}
	_, err := resolver.UpgradeRole(context.Background(), hoster, "target", RoleHoster)

	assert.ErrorIs(t, err, core.ErrForbidden)
	assert.Equal(t, RoleUser, repo.profiles["target"].Role)
}

func TestUpgradeRole_UnknownTarget(t *testing.T) {
	resolver := NewResolver(newMemRepo(), nil)

	_, err := resolver.UpgradeRole(context.Background(), admin, "missing", RoleHoster)

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpgradeRole_VisibleOnNextResolve(t *testing.T) {
	repo := newMemRepo()
	resolver := NewResolver(repo, nil)
	ctx := context.Background()

	role, err := resolver.Resolve(ctx, "u-4", "d@example.com")
	require.NoError(t, err)
	require.Equal(t, RoleUser, role)

	_, err = resolver.UpgradeRole(ctx, admin, "u-4", RoleHoster)
	require.NoError(t, err)

	role, err = resolver.Resolve(ctx, "u-4", "d@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleHoster, role)
}

func TestResolve_UsesCacheAndInvalidatesOnUpgrade(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := core.NewCache(client, "role:", time.Minute)

	repo := newMemRepo()
	repo.profiles["u-5"] = Profile{ID: "u-5", Email: "e@example.com", Role: RoleUser}
	resolver := NewResolver(repo, cache)
	ctx := context.Background()

	mock.ExpectGet("role:u-5").RedisNil()
	mock.ExpectSet("role:u-5", "User", time.Minute).SetVal("OK")
	role, err := resolver.Resolve(ctx, "u-5", "e@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	mock.ExpectGet("role:u-5").SetVal("User")
	role, err = resolver.Resolve(ctx, "u-5", "e@example.com")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, role)

	mock.ExpectDel("role:u-5").SetVal(1)
	_, err = resolver.UpgradeRole(ctx, admin, "u-5", RoleHoster)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolve_CacheErrorFallsBackToStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := core.NewCache(client, "role:", time.Minute)

	repo := newMemRepo()
	repo.profiles["u-6"] = Profile{ID: "u-6", Role: RoleAdmin}
	resolver := NewResolver(repo, cache)

	mock.ExpectGet("role:u-6").SetErr(errors.New("redis down"))
	mock.ExpectSet("role:u-6", "Admin", time.Minute).SetErr(errors.New("redis down"))

	role, err := resolver.Resolve(context.Background(), "u-6", "")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProfiles(t *testing.T) {
	repo := newMemRepo()
	resolver := NewResolver(repo, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := resolver.Resolve(ctx, id, id+"@example.com")
		require.NoError(t, err)
	}

	_, _, err := resolver.ListProfiles(ctx, Caller{ID: "a", Role: RoleUser}, ListProfilesParams{})
	assert.ErrorIs(t, err, core.ErrForbidden)

	profiles, total, err := resolver.ListProfiles(ctx, admin, ListProfilesParams{Search: "B@"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, profiles, 1)
	assert.Equal(t, "b", profiles[0].ID)
}
