package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-occupancy-maps/internal/blocking"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
)

var brt = time.FixedZone("BRT", -3*60*60)

// 2025-12-03 14:00 local, a Wednesday.
var fixedNow = time.Date(2025, time.December, 3, 14, 0, 0, 0, brt)

var today = schedule.DateOf(fixedNow)

type feedKey struct {
	pid  int64
	date schedule.Date
}

type fakeFeed struct {
	mu      sync.Mutex
	slots   map[feedKey][]schedule.Slot
	fail    map[int64]error
	queries []schedule.SlotQuery
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{slots: map[feedKey][]schedule.Slot{}, fail: map[int64]error{}}
}

func (f *fakeFeed) add(pid int64, d schedule.Date, hours ...int) {
	for _, h := range hours {
		f.slots[feedKey{pid, d}] = append(f.slots[feedKey{pid, d}], schedule.Slot{Date: d, Time: schedule.Clock{Hour: h}, RoomID: 4})
	}
}

func (f *fakeFeed) FetchAvailableSlots(ctx context.Context, q schedule.SlotQuery) ([]schedule.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if err := f.fail[q.ProfessionalID]; err != nil {
		return nil, err
	}
	return f.slots[feedKey{q.ProfessionalID, q.From}], nil
}

func newReconstructor(t *testing.T, feed Feed, blocker Blocker) *Reconstructor {
	t.Helper()
	r, err := New(Config{
		Feed:     feed,
		Blocker:  blocker,
		Location: brt,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return r
}

func hours(records []schedule.Record) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.Time.Hour
	}
	return out
}

func TestReconstructTodaySplitsAtCutoff(t *testing.T) {
	feed := newFakeFeed()
	feed.add(1, today.AddDays(7), 10, 15, 9)
	feed.add(1, today, 9, 16)

	res, err := newReconstructor(t, feed, nil).Reconstruct(context.Background(), Target{UnitID: 2, ProfessionalID: 1, SpecialtyID: 30, Date: today})
	require.NoError(t, err)

	assert.Equal(t, ModeToday, res.Mode)
	assert.Equal(t, []int{9, 10, 16}, hours(res.Records))
	assert.Equal(t, schedule.OriginMirror, res.Records[0].Origin, "09:00 comes from the mirror only")
	assert.Equal(t, schedule.OriginLive, res.Records[2].Origin)
	for _, rec := range res.Records {
		assert.Equal(t, today, rec.Date)
		assert.Equal(t, schedule.StatusFree, rec.Status)
		assert.Equal(t, int64(30), rec.SpecialtyID)
		assert.Equal(t, int64(2), rec.UnitID)
	}
	assert.True(t, res.Simulated())
}

func TestReconstructFutureTrustsLiveFeed(t *testing.T) {
	feed := newFakeFeed()
	tomorrow := today.AddDays(1)
	feed.add(1, tomorrow, 8, 9)
	feed.add(1, tomorrow.AddDays(7), 11)

	res, err := newReconstructor(t, feed, nil).Reconstruct(context.Background(), Target{ProfessionalID: 1, Date: tomorrow})
	require.NoError(t, err)
	assert.Equal(t, ModeFuture, res.Mode)
	assert.Equal(t, []int{8, 9}, hours(res.Records))
	assert.False(t, res.Simulated())
	assert.Len(t, feed.queries, 1)
}

func TestReconstructPastFallsBackToSecondMirror(t *testing.T) {
	feed := newFakeFeed()
	past := today.AddDays(-2)
	feed.add(1, past.AddDays(14), 8, 13)

	res, err := newReconstructor(t, feed, nil).Reconstruct(context.Background(), Target{ProfessionalID: 1, Date: past})
	require.NoError(t, err)
	assert.Equal(t, ModePast, res.Mode)
	assert.Equal(t, []int{8, 13}, hours(res.Records))
	assert.Equal(t, past.AddDays(14), res.MirrorDate.Value)
	assert.Equal(t, past, res.Records[0].Date)
}

func TestReconstructPastWithoutMirrorIsGap(t *testing.T) {
	res, err := newReconstructor(t, newFakeFeed(), nil).Reconstruct(context.Background(), Target{ProfessionalID: 1, Date: today.AddDays(-1)})
	require.NoError(t, err)
	assert.True(t, res.Gap)
	assert.Empty(t, res.Records)
}

func TestReconstructTodayWithLiveSlotsIsNotGap(t *testing.T) {
	feed := newFakeFeed()
	feed.add(1, today, 15, 16)

	res, err := newReconstructor(t, feed, nil).Reconstruct(context.Background(), Target{ProfessionalID: 1, Date: today})
	require.NoError(t, err)
	assert.Equal(t, ModeToday, res.Mode)
	assert.False(t, res.Simulated())
	assert.False(t, res.Gap)
	assert.Equal(t, []int{15, 16}, hours(res.Records))
}

func TestReconstructTodayWithoutMirrorOrLiveIsGap(t *testing.T) {
	feed := newFakeFeed()
	feed.add(1, today, 9)

	res, err := newReconstructor(t, feed, nil).Reconstruct(context.Background(), Target{ProfessionalID: 1, Date: today})
	require.NoError(t, err)
	assert.True(t, res.Gap, "live slots before now do not count")
	assert.Empty(t, res.Records)
}

func TestReconstructAppliesBlocksToMirroredSlots(t *testing.T) {
	feed := newFakeFeed()
	past := today.AddDays(-1)
	feed.add(1, past.AddDays(7), 8, 9, 10)

	blocks := staticBlocks{{
		StartDate: past, EndDate: past,
		StartTime: schedule.Some(schedule.Clock{Hour: 9}),
		EndTime:   schedule.Some(schedule.Clock{Hour: 9, Minute: 30}),
	}}
	res, err := newReconstructor(t, feed, blocking.NewFilter(blocks, nil)).Reconstruct(context.Background(), Target{ProfessionalID: 1, Date: past})
	require.NoError(t, err)
	assert.Equal(t, []int{8, 10}, hours(res.Records))
	assert.Equal(t, 1, res.Blocked)
}

func TestReconstructAllIsolatesFailuresAndSorts(t *testing.T) {
	feed := newFakeFeed()
	tomorrow := today.AddDays(1)
	for pid := int64(1); pid <= 6; pid++ {
		feed.add(pid, tomorrow, 8)
	}
	feed.fail[4] = errors.New("upstream 503")

	targets := []Target{
		{ProfessionalID: 6, Date: tomorrow},
		{ProfessionalID: 3, Date: tomorrow},
		{ProfessionalID: 4, Date: tomorrow},
		{ProfessionalID: 1, Date: tomorrow},
		{ProfessionalID: 5, Date: tomorrow},
		{ProfessionalID: 2, Date: tomorrow},
	}
	results := newReconstructor(t, feed, nil).ReconstructAll(context.Background(), targets, 3)

	require.Len(t, results, 6)
	for i, res := range results {
		assert.Equal(t, int64(i+1), res.Target.ProfessionalID)
		if res.Target.ProfessionalID == 4 {
			assert.Error(t, res.Err)
			continue
		}
		assert.NoError(t, res.Err)
		assert.Len(t, res.Records, 1)
	}
}

func TestNewRequiresFeed(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

type staticBlocks []schedule.Block

func (s staticBlocks) ListBlocks(ctx context.Context, from, to schedule.Date) ([]schedule.Block, error) {
	return s, nil
}
