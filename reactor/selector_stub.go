//go:build !linux

// File: reactor/selector_stub.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Non-Linux placeholder: a concrete epoll/IOCP/kqueue backend is an
// out-of-scope external collaborator per spec.md §1 ("concrete socket
// implementations beyond the abstraction"). This stub satisfies the build
// on other platforms; production deployments of this engine target Linux.
package reactor

import "errors"

func NewSelector() (Selector, error) {
	return nil, errors.New("reactor: no selector backend for this platform")
}
