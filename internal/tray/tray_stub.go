//go:build !tray

package tray

import (
	"errors"

	"github.com/j-veylop/antigravity-switcher/internal/services"
)

// ErrUnavailable is returned when the binary was built without tray support.
var ErrUnavailable = errors.New("tray mode not available in this build, rebuild with: go build -tags tray ./cmd/agswitch")

// Run reports that tray support was not compiled in.
func Run(_ *services.Manager) error {
	return ErrUnavailable
}
