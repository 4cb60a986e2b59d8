//go:build !linux && !darwin

package media

func newPlatformController() Controller {
	return Disabled{}
}
