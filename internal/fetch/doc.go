// Package fetch retrieves single remote images with bounded retries.
//
// One call to Client.Do is one logical fetch: up to MaxAttempts HTTP
// GETs with a linearly growing delay between them. Failures carry a
// Kind from a closed set, so callers can distinguish retryable from
// fatal conditions exhaustively instead of inspecting error types.
//
//   - Timeouts, connection errors, and 5xx responses are retried.
//   - 4xx responses are fatal: the server understood the request and
//     said no; asking again won't change its mind.
//   - A 2xx response whose body is shorter than MinSize is fatal too.
//     Image hosts that are broken tend to serve tiny HTML error pages
//     with a 200 status.
//
// # Usage
//
//	client := fetch.NewClient(fetch.DefaultOptions())
//	res, err := client.Do(ctx, url)
//	if err != nil {
//	    if fetch.KindOf(err) == fetch.KindClient { ... }
//	}
//	// res.Body, res.ContentType, res.Elapsed
package fetch
