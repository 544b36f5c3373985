// ABOUTME: Version information for asrstream binaries
// ABOUTME: Reported in logs, the TUI header and mDNS TXT records
package version

// Version is overridden at build time with -ldflags "-X"
var Version = "0.3.0"

const (
	Product      = "asrstream"
	Manufacturer = "harperreed"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
