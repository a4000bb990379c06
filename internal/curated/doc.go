// Package curated is a helper package for the plain Go language error type.
//
// Curated errors are created with Errorf(). This is similar to the Errorf()
// function in the fmt package except that the pattern and its values are
// kept rather than formatted immediately — formatting happens in Error().
// This lets Is()/Has() check whether an error chain was built from a
// specific pattern without doing string matching against the final,
// formatted message.
//
//	e := curated.Errorf(curated.MemoryError, addr)
//	if curated.Is(e, curated.MemoryError) {
//		...
//	}
package curated
