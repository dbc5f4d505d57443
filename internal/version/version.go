// ABOUTME: Version information
// ABOUTME: Product identity reported to stream servers and by -version
package version

const (
	// Version is the application version
	Version = "0.3.0"

	// Product is the application name
	Product = "streamplay"
)

// UserAgent is the HTTP User-Agent sent when opening streams
func UserAgent() string {
	return Product + "/" + Version
}
