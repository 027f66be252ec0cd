//go:build !linux && !darwin && !windows

package process

// CurrentPlatform falls back to the Linux rules on other unixes.
func CurrentPlatform() Platform {
	p := Linux()
	p.Name = "unix"
	return p
}
