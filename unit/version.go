package unit

import "golang.org/x/mod/semver"

// CurrentFormatVersion is this build's Unit format identity. It is not
// a persistence format (spec.md states a Unit is in-memory only).
// CompatibleFormat compares a version against it; neither the VM nor
// Seal calls that check, so a Unit is executed whatever its origin.
const CurrentFormatVersion = "v1.0.0"

// CompatibleFormat reports whether a Unit built with builderVersion can
// be executed by a VM built with CurrentFormatVersion: same major
// version, builder version no newer than the running one.
func CompatibleFormat(builderVersion string) bool {
	if !semver.IsValid(builderVersion) || !semver.IsValid(CurrentFormatVersion) {
		return false
	}
	if semver.Major(builderVersion) != semver.Major(CurrentFormatVersion) {
		return false
	}
	return semver.Compare(builderVersion, CurrentFormatVersion) <= 0
}
