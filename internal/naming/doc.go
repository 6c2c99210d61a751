// Package naming decides what fetched images are called on disk.
//
// Output objects are named image_<N><ext>, where N is a decimal index
// with no fixed width and ext includes the leading dot. Those names are
// the only persisted batch state: a later run lists the destination,
// finds the highest N, and continues from N+1.
//
// # Usage
//
//	start, err := naming.StartIndex(ctx, bucket)
//	// ...
//	ext := naming.Extension(resp.ContentType, url)
//	key := naming.Filename(start+uint64(i), ext)
package naming
