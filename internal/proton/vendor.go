package proton

// Vendor describes one supported Proton release family: where its releases
// live and how its builds are retired from the runtime store.
type Vendor struct {
	// Name is the family name, also the prefix of its build directories.
	Name string
	// ReleasesPath is the release index path under the API base URL.
	ReleasesPath string
	// AssetPrefixes are the recognized archive name prefixes on release assets.
	AssetPrefixes []string
	// RetirePrefixes are the store directory prefixes retired after a
	// successful update. Empty for conservative families whose previous
	// builds are kept around.
	RetirePrefixes []string
}

const (
	// VendorUMU is the default release family.
	VendorUMU = "UMU-Proton"
	// VendorGE selects bleeding-edge GE-Proton builds.
	VendorGE = "GE-Proton"

	// AliasName is the stable alias symlink inside the runtime store.
	AliasName = "UMU-Latest"

	// archiveSuffix is the compressed archive suffix on release assets.
	archiveSuffix = ".tar.gz"
	// digestSuffix is the digest file suffix on release assets.
	digestSuffix = "sum"
)

// SelectVendor maps the caller-supplied selector to a vendor. The selector
// value "GE-Proton" picks the GE family; anything else means the default.
func SelectVendor(selector string) Vendor {
	if selector == VendorGE {
		return Vendor{
			Name:          VendorGE,
			ReleasesPath:  "/repos/GloriousEggroll/proton-ge-custom/releases",
			AssetPrefixes: []string{VendorUMU, VendorGE},
			// GE-Proton is a rebase of bleeding edge, regressions are
			// plausible, so previous builds stay installed.
			RetirePrefixes: nil,
		}
	}

	return Vendor{
		Name:           VendorUMU,
		ReleasesPath:   "/repos/Open-Wine-Components/umu-proton/releases",
		AssetPrefixes:  []string{VendorUMU, VendorGE},
		RetirePrefixes: []string{VendorUMU, "ULWGL-Proton"},
	}
}

// Prunable reports whether superseded builds of this family are removed
// after an update.
func (v Vendor) Prunable() bool {
	return len(v.RetirePrefixes) > 0
}
