//go:build windows

package fingerprint

import (
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const currentVersionKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`

// installDate returns the OS install time in unix seconds as recorded by
// Windows setup.
func installDate() (string, error) {
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, currentVersionKey, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return "", err
	}
	defer k.Close()

	v, _, err := k.GetIntegerValue("InstallDate")
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(v, 10), nil
}

// Windows paths are case-insensitive.
func foldCase(p string) string { return strings.ToLower(p) }
