package repokit

import (
	"context"
	"fmt"
)

type guarder interface {
	Guard(context.Context) error
}

// MustGuard runs store.Guard and panics on any error; cmd entrypoints call
// this right after store.Open so a dead database fails the process at
// startup instead of on the first query
func MustGuard(ctx context.Context, st guarder) {
	if err := st.Guard(ctx); err != nil {
		panic(fmt.Errorf("dependency guard failed: %w", err))
	}
}
