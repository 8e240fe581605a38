package dispatch

import "strings"

// DeviceKind is the device family reported to the backend.
type DeviceKind string

const (
	DeviceApple   DeviceKind = "Apple"
	DeviceAndroid DeviceKind = "Android"
	DeviceWindows DeviceKind = "Windows"
	DeviceUnknown DeviceKind = "Unknown"
)

// DetectDevice classifies a user-agent string by substring, in the same
// order the backend's own detection runs: Apple handhelds first, then
// Android, then Windows.
func DetectDevice(userAgent string) DeviceKind {
	switch {
	case strings.Contains(userAgent, "iPhone"),
		strings.Contains(userAgent, "iPad"),
		strings.Contains(userAgent, "iPod"):
		return DeviceApple
	case strings.Contains(userAgent, "Android"):
		return DeviceAndroid
	case strings.Contains(userAgent, "Windows NT"):
		return DeviceWindows
	default:
		return DeviceUnknown
	}
}
