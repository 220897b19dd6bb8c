//go:build !windows

package fingerprint

import "errors"

var errNoInstallDate = errors.New("install date not available on this platform")

func installDate() (string, error) { return "", errNoInstallDate }

func foldCase(p string) string { return p }
