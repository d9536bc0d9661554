package spin

// Version information for spinkit.
const (
	// Version is the current version of the library.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the library.
type Info struct {
	// Version is the library version string.
	Version string

	// Primitives names the atomic hardware primitives the locks build on.
	Primitives []string
}

// GetInfo returns information about the library.
//
// Example:
//
//	info := spin.GetInfo()
//	fmt.Printf("spinkit %s\n", info.Version)
func GetInfo() Info {
	return Info{
		Version:    Version,
		Primitives: []string{"exchange", "test-and-set", "load-linked/store-conditional"},
	}
}
