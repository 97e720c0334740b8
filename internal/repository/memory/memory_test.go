package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
)

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	repo := New()
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u-1", Email: "a@x.com"}))
	err := repo.CreateUser(ctx, &domain.User{ID: "u-2", Email: "a@x.com"})
	require.ErrorIs(t, err, repository.ErrConflict)

	users, err := repo.ListUsersByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "u-1", users[0].ID)
}

func TestEmailIsCaseSensitive(t *testing.T) {
	repo := New()
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u-1", Email: "a@x.com"}))
	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u-2", Email: "A@x.com"}))

	users, err := repo.ListUsersByEmail(ctx, "A@x.com")
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestConcurrentCreateUserAdmitsOneEmail(t *testing.T) {
	repo := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.CreateUser(ctx, &domain.User{ID: fmt.Sprintf("u-%d", i), Email: "race@x.com"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, repository.ErrConflict)
	}
	require.Equal(t, 1, created)
}

func TestUpdateUser(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u-1", Email: "a@x.com"}))
	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u-2", Email: "b@x.com"}))

	require.ErrorIs(t, repo.UpdateUser(ctx, &domain.User{ID: "u-2", Email: "a@x.com"}), repository.ErrConflict)
	require.ErrorIs(t, repo.UpdateUser(ctx, &domain.User{ID: "missing"}), repository.ErrNotFound)

	require.NoError(t, repo.UpdateUser(ctx, &domain.User{ID: "u-2", Email: "c@x.com"}))
	user, err := repo.GetUserByID(ctx, "u-2")
	require.NoError(t, err)
	require.Equal(t, "c@x.com", user.Email)
}

func TestDeleteUserCascadesReports(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u-1", Email: "a@x.com"}))
	require.NoError(t, repo.CreateReport(ctx, &domain.Report{ID: "r-1", UserID: "u-1"}))

	require.NoError(t, repo.DeleteUser(ctx, "u-1"))
	_, err := repo.GetReportByID(ctx, "r-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, repo.DeleteUser(ctx, "u-1"), repository.ErrNotFound)
}

func TestReportApprovalIsolatedFromCaller(t *testing.T) {
	repo := New()
	ctx := context.Background()
	require.NoError(t, repo.CreateReport(ctx, &domain.Report{ID: "r-1"}))

	report, err := repo.GetReportByID(ctx, "r-1")
	require.NoError(t, err)
	require.Nil(t, report.Approved)

	report.SetApproval(true, time.Now())
	require.NoError(t, repo.UpdateReport(ctx, report))

	*report.Approved = false
	stored, err := repo.GetReportByID(ctx, "r-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Approved)
	require.True(t, *stored.Approved)

	require.ErrorIs(t, repo.UpdateReport(ctx, &domain.Report{ID: "missing"}), repository.ErrNotFound)
}
