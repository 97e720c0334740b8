package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/splax/reportdesk/internal/repository"
)

func TestTranslate(t *testing.T) {
	other := errors.New("boom")
	cases := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "unique violation", in: &pgconn.PgError{Code: pgUniqueViolation}, want: repository.ErrConflict},
		{name: "wrapped unique violation", in: fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation}), want: repository.ErrConflict},
		{name: "other pg error", in: &pgconn.PgError{Code: "23503"}, want: nil},
		{name: "plain error", in: other, want: other},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(tc.in)
			switch {
			case tc.in == nil:
				if got != nil {
					t.Fatalf("translate(nil) = %v", got)
				}
			case tc.want == nil:
				if errors.Is(got, repository.ErrConflict) {
					t.Fatalf("unexpected conflict for %v", tc.in)
				}
			default:
				if !errors.Is(got, tc.want) {
					t.Fatalf("translate(%v) = %v, want %v", tc.in, got, tc.want)
				}
			}
		})
	}
}
