// File: executor/goroutine_id.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// goroutineMarker extracts the calling goroutine's runtime id so
// InEventLoop can test caller affinity without a context.Context thread
// through every call site. This parses the "goroutine N [...]" header the
// runtime writes into a stack trace — a well known, if inelegant, way to
// get a stable per-goroutine identity in Go without cgo or assembly.
package executor

import (
	"bytes"
	"runtime"
	"strconv"
)

func goroutineMarker() int64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	i := bytes.IndexByte(buf, ' ')
	if i < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(buf[:i]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
