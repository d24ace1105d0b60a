//go:build !vips

package codec

import "fmt"

func newVips() (Codec, error) {
	return nil, fmt.Errorf("%w: %s (rebuild with -tags vips)", ErrBackendUnavailable, BackendVips)
}
