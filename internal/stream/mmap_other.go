//go:build !unix

package stream

import "errors"

func mapAnonymous(int) ([]byte, error) {
	return nil, errors.New("anonymous memory maps are not supported on this platform")
}

func unmap([]byte) error { return nil }
