//go:build !native

package driver

import (
	"fmt"

	"blecentral/internal/domain"
)

func init() {
	mustRegister(NameNative, func(Config) (domain.Driver, error) {
		return nil, fmt.Errorf("native driver not compiled in, rebuild with -tags native: %w", domain.ErrUnsupported)
	})
}
