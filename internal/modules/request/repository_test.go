// README: Conditional-write contract shared by MemoryRepository and the Postgres Store.
package request

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"errandhub/internal/testutil"
	"errandhub/internal/types"
)

func TestMemoryRepository_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository { return NewMemoryRepository() })
}

func TestStore_Contract(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) Repository { return NewStore(testutil.OpenDB(t)) })
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seedRequest(t *testing.T, repo Repository, requester types.ID, offset time.Duration) *ServiceRequest {
	t.Helper()
	r := &ServiceRequest{
		ID:            types.NewID(),
		RequesterID:   requester,
		Title:         "errand",
		ServiceType:   ServiceErrands,
		Pickup:        types.Point{Lat: 37.0, Lng: -122.0},
		Destination:   &types.Point{Lat: 37.01, Lng: -122.0},
		OfferedAmount: &types.Money{Amount: 1200, Currency: "USD"},
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     baseTime.Add(offset),
		UpdatedAt:     baseTime.Add(offset),
	}
	require.NoError(t, repo.CreateRequest(context.Background(), r))
	return r
}

func newAssignment(r *ServiceRequest, provider types.ID) *Assignment {
	at := r.CreatedAt.Add(time.Minute)
	return &Assignment{
		ID:         types.NewID(),
		RequestID:  r.ID,
		ProviderID: provider,
		Status:     AssignmentAssigned,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func runRepositoryContract(t *testing.T, open func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		repo := open(t)
		r := seedRequest(t, repo, "u1", 0)
		got, err := repo.GetRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.Title, got.Title)
		assert.Equal(t, r.Pickup, got.Pickup)
		require.NotNil(t, got.Destination)
		assert.Equal(t, *r.Destination, *got.Destination)
		require.NotNil(t, got.OfferedAmount)
		assert.Equal(t, int64(1200), got.OfferedAmount.Amount)
		assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

		_, err = repo.GetRequest(ctx, "missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("accept is exclusive", func(t *testing.T) {
		repo := open(t)
		r := seedRequest(t, repo, "u1", 0)

		const n = 8
		var wg sync.WaitGroup
		results := make(chan bool, n)
		start := make(chan struct{})
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				ok, err := repo.CreateAssignment(ctx, newAssignment(r, types.ID("p"+string(rune('a'+i)))), r.StatusVersion)
				assert.NoError(t, err)
				results <- ok
			}(i)
		}
		close(start)
		wg.Wait()
		close(results)

		wins := 0
		for ok := range results {
			if ok {
				wins++
			}
		}
		assert.Equal(t, 1, wins)

		got, err := repo.GetRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusAccepted, got.Status)
		_, err = repo.ActiveAssignment(ctx, r.ID)
		assert.NoError(t, err)
	})

	t.Run("transition moves both rows", func(t *testing.T) {
		repo := open(t)
		r := seedRequest(t, repo, "u1", 0)
		a := newAssignment(r, "p1")
		ok, err := repo.CreateAssignment(ctx, a, r.StatusVersion)
		require.NoError(t, err)
		require.True(t, ok)

		at := baseTime.Add(time.Hour)
		ok, err = repo.TransitionAssignment(ctx, Transition{
			AssignmentID: a.ID, From: AssignmentAssigned, To: AssignmentInProgress, Version: 0,
			RequestID: r.ID, RequestFrom: StatusAccepted, RequestTo: StatusInProgress, At: at,
		})
		require.NoError(t, err)
		require.True(t, ok)

		// stale version loses
		ok, err = repo.TransitionAssignment(ctx, Transition{
			AssignmentID: a.ID, From: AssignmentInProgress, To: AssignmentCompleted, Version: 0,
			RequestID: r.ID, RequestFrom: StatusInProgress, RequestTo: StatusCompleted, At: at,
		})
		require.NoError(t, err)
		assert.False(t, ok)

		notes := "left at the door"
		done := at.Add(time.Hour)
		ok, err = repo.TransitionAssignment(ctx, Transition{
			AssignmentID: a.ID, From: AssignmentInProgress, To: AssignmentCompleted, Version: 1,
			RequestID: r.ID, RequestFrom: StatusInProgress, RequestTo: StatusCompleted, Notes: &notes, At: done,
		})
		require.NoError(t, err)
		require.True(t, ok)

		got, err := repo.GetAssignment(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, AssignmentCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, done.Equal(*got.CompletedAt))
		require.NotNil(t, got.CompletionNotes)
		assert.Equal(t, notes, *got.CompletionNotes)

		req, err := repo.GetRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, req.Status)
	})

	t.Run("transition rejected when request moved", func(t *testing.T) {
		repo := open(t)
		r := seedRequest(t, repo, "u1", 0)
		a := newAssignment(r, "p1")
		ok, err := repo.CreateAssignment(ctx, a, r.StatusVersion)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.TransitionAssignment(ctx, Transition{
			AssignmentID: a.ID, From: AssignmentAssigned, To: AssignmentInProgress, Version: 0,
			RequestID: r.ID, RequestFrom: StatusInProgress, RequestTo: StatusInProgress, At: baseTime,
		})
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.GetAssignment(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, AssignmentAssigned, got.Status)
	})

	t.Run("pending only writes", func(t *testing.T) {
		repo := open(t)
		r := seedRequest(t, repo, "u1", 0)
		title := "changed"
		updated, ok, err := repo.UpdatePending(ctx, r.ID, Patch{Title: &title}, baseTime.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, r.StatusVersion+1, updated.StatusVersion)
		assert.Equal(t, baseTime.Add(time.Minute), updated.UpdatedAt.UTC())

		// untouched fields keep their stored values
		amount := &types.Money{Amount: 900, Currency: "EUR"}
		updated, ok, err = repo.UpdatePending(ctx, r.ID, Patch{OfferedAmount: amount}, baseTime.Add(2*time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, r.Description, updated.Description)
		assert.Equal(t, r.Destination, updated.Destination)
		assert.Equal(t, amount, updated.OfferedAmount)
		stored, err := repo.GetRequest(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.StatusVersion, stored.StatusVersion)
		assert.Equal(t, amount, stored.OfferedAmount)

		_, _, err = repo.UpdatePending(ctx, "missing", Patch{Title: &title}, baseTime)
		assert.ErrorIs(t, err, types.ErrNotFound)

		ok, err = repo.CreateAssignment(ctx, newAssignment(r, "p1"), updated.StatusVersion)
		require.NoError(t, err)
		require.True(t, ok)

		_, ok, err = repo.UpdatePending(ctx, r.ID, Patch{Title: &title}, baseTime)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.DeletePending(ctx, r.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		other := seedRequest(t, repo, "u1", time.Second)
		ok, err = repo.CancelPending(ctx, other.ID, other.StatusVersion, baseTime)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.CancelPending(ctx, other.ID, other.StatusVersion, baseTime)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("payment only after completion", func(t *testing.T) {
		repo := open(t)
		r := seedRequest(t, repo, "u1", 0)
		ok, err := repo.SetPaymentStatus(ctx, r.ID, PaymentUnpaid, PaymentPaid, baseTime)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("listing order", func(t *testing.T) {
		repo := open(t)
		a := seedRequest(t, repo, "lister", 0)
		b := seedRequest(t, repo, "lister", time.Minute)
		c := seedRequest(t, repo, "lister", 2*time.Minute)

		mine, err := repo.ListByRequester(ctx, "lister", types.Page{Limit: 10})
		require.NoError(t, err)
		require.Len(t, mine, 3)
		assert.Equal(t, c.ID, mine[0].ID)
		assert.Equal(t, a.ID, mine[2].ID)

		feed, err := repo.ListOpen(ctx, OpenQuery{Skip: 1, Limit: 1})
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, b.ID, feed[0].ID)

		rest, err := repo.ListOpen(ctx, OpenQuery{After: CursorAfter(a)})
		require.NoError(t, err)
		require.Len(t, rest, 2)
		assert.Equal(t, []types.ID{b.ID, c.ID}, []types.ID{rest[0].ID, rest[1].ID})

		rest, err = repo.ListOpen(ctx, OpenQuery{After: CursorAfter(c)})
		require.NoError(t, err)
		assert.Empty(t, rest)
	})
}
