// Package preprocess turns a user-supplied photo into the float32 tensor the
// ulcer classifier expects.
//
// The steps are:
//   - Decode: read the source once, check its reported size, decode it, apply
//     the EXIF orientation and downscale it toward a short-side target to
//     bound memory for large camera photos.
//   - Resize: scale to the model's exact input width and height.
//   - ToTensor: write (channel - mean) / std for R, G, B of every pixel,
//     row-major, top-to-bottom, left-to-right.
//
// The fast-decode target is an optimization only. Preprocess always resizes
// to the model size afterwards, so the tensor does not depend on it except
// through resampling.
//
// Every step is deterministic: the same source and parameters produce a
// bit-identical tensor.
package preprocess
