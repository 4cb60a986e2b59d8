//go:build !linux && !darwin && !windows

package window

import "context"

type unsupportedProvider struct{}

func newPlatformProvider(string) Provider { return unsupportedProvider{} }

func (unsupportedProvider) ActiveWindow(context.Context) (*Handle, error)   { return nil, ErrUnsupported }
func (unsupportedProvider) PreviousWindow(context.Context) (*Handle, error) { return nil, ErrUnsupported }
func (unsupportedProvider) EditorWindows(context.Context, string) ([]Handle, error) {
	return nil, ErrUnsupported
}
func (unsupportedProvider) Focus(context.Context, Handle) error     { return ErrUnsupported }
func (unsupportedProvider) FocusApp(context.Context, string) error { return ErrUnsupported }
