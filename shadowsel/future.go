package shadowsel

import "github.com/hazyhaar/shadowq/shadowsel/internal/future"

// Future is the pending result of an asynchronous lookup. Await stops
// waiting when its context ends; the lookup itself always runs to the end
// of its retry budget.
type Future[T any] = future.Future[T]
