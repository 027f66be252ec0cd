//go:build windows

package process

// CurrentPlatform returns the table for the OS this binary was built for.
func CurrentPlatform() Platform {
	return Windows()
}
