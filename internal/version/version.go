// ABOUTME: Version constants for the player
// ABOUTME: Single place to bump release information
package version

const (
	Product = "Clavier Player"
	Version = "0.1.0"
)
