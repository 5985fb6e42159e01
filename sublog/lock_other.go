//go:build !unix

package sublog

import "os"

// Without flock, appends are serialized by Log's mutex only, which covers
// a single process.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) {}
