package stacktrace

import (
	"runtime"
	"strconv"
	"strings"
)

const maxDepth = 64

// Internal returns the caller's frames that live under an internal/ tree,
// formatted as "internal/<pkg>/<file>.go:<line>". skip 0 starts at the
// function calling Internal.
func Internal(skip int) []string {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var paths []string
	for {
		fr, more := frames.Next()
		if i := strings.Index(fr.File, "/internal/"); i >= 0 {
			paths = append(paths, fr.File[i+1:]+":"+strconv.Itoa(fr.Line))
		}
		if !more {
			break
		}
	}

	return paths
}
