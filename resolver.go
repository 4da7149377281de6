package wdns

import (
	"context"
	"fmt"
)

// Resolver is an interface to resolve DNS queries. The context carries
// cancellation and, where the caller sets one, an overall deadline.
type Resolver interface {
	Resolve(ctx context.Context, q *Msg) (*Msg, error)
	fmt.Stringer
}
