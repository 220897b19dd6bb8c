package integrity

// Keys of the built-in conditions. They double as warning cache keys, so
// renaming one resets its notification history.
const (
	KeyBaseMissing      = "MGS2_AfevisBugFixCompilation"
	KeyLegacyUpscale    = "LiqMixAISlop"
	KeyUpscaleLoadOrder = "MGS2_UpscaleLoadOrder"
)

const (
	installGuideURL = "https://github.com/ShizCalev/MGSHDFix#installation"

	baseMarker    = "textures/flatlist/win/col_orange2.bmp.ctxr"
	overlayMarker = "textures/flatlist/ovr_stm/win/col_orange2.bmp.ctxr"
	upscaleMarker = "textures/flatlist/ovr_stm/_win/col_orange2.bmp.ctxr"

	baseGoodDigest = "11d03110d40b42adeafde2fa5f5cf65f27d6fc52"
)

// legacyUpscaleDigests identify the outdated upscale pack. The load-order row
// skips them so one overwritten marker raises a single warning.
var legacyUpscaleDigests = []string{
	"96ba1191c0da112d355bf510dcb3828f1183d1b5",
	"4ecda248b079ee426262a23b64df6cb05a249088",
}

// DefaultConditions returns the built-in condition table.
func DefaultConditions() []Condition {
	return []Condition{
		{
			Key:        KeyBaseMissing,
			Kind:       KindBaseMissing,
			Path:       baseMarker,
			GoodHashes: []string{baseGoodDigest},
			Title:      "Bugfix Compilation (Base) Missing",
			Message: "The **Afevis Bugfix Compilation** base files are missing or were " +
				"overwritten by a game update.\n\nThe game may crash in several " +
				"cutscenes until the base package is reinstalled.",
			URL: installGuideURL,
		},
		{
			Key:       KeyLegacyUpscale,
			Kind:      KindIncompatiblePack,
			Path:      overlayMarker,
			BadHashes: legacyUpscaleDigests,
			Title: "Incompatible Upscale Pack Detected",
			Message: "An outdated third-party AI upscale texture pack is installed.\n\n" +
				"It replaces fixed textures with broken ones and conflicts with the " +
				"bugfix package. Remove it before reinstalling the bugfix files.",
			URL: installGuideURL,
		},
		{
			Key:            KeyUpscaleLoadOrder,
			Kind:           KindLoadOrder,
			Path:           overlayMarker,
			RequirePresent: []string{upscaleMarker},
			GoodHashes:     []string{baseGoodDigest},
			BadHashes:      legacyUpscaleDigests,
			Title:          "Upscale Pack Load Order",
			Message: "The upscale pack was installed before the bugfix package it " +
				"depends on.\n\nReinstall the bugfix package after the upscale pack " +
				"so its fixed textures take priority.",
			URL: installGuideURL,
		},
	}
}
