package naming

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"gocloud.dev/blob"
)

// outputName matches names produced by Filename: image_<digits>.<ext>.
// It is a search, not an anchor, so the first embedded match in a name
// wins and surrounding path segments are irrelevant.
var outputName = regexp.MustCompile(`image_(\d+)\.\w+`)

// ComputeStartIndex derives the next free output index from a set of
// existing names: one past the highest numbered image_N.* name, or 1
// when nothing matches. Names that don't fit the pattern are ignored.
// Gaps in the existing numbering are preserved, never backfilled.
func ComputeStartIndex(names []string) uint64 {
	var max uint64
	for _, name := range names {
		m := outputName.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			// wider than 64 bits; skip rather than truncate
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// StartIndex lists the destination and computes the next free output
// index from the names found there.
func StartIndex(ctx context.Context, bucket *blob.Bucket) (uint64, error) {
	var names []string

	iter := bucket.List(&blob.ListOptions{Prefix: "image_"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("list destination: %w", err)
		}
		names = append(names, obj.Key)
	}

	return ComputeStartIndex(names), nil
}
