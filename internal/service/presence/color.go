package presence

// palette holds the fixed set of display colors. A user keeps the same
// color for as long as their id is stable.
var palette = []string{
	"#E74C3C", "#9B59B6", "#3498DB", "#1ABC9C",
	"#F39C12", "#E67E22", "#2ECC71", "#8E44AD",
	"#16A085", "#2980B9", "#C0392B", "#D35400",
}

// SystemColor marks messages authored by the server itself.
const (
	SystemColor        = "#00cc88"
	SystemDepartColor  = "#ff3366"
	DeletedSenderColor = "#999999"
)

// ColorFor deterministically maps a user id onto the palette. The hash is a
// character-code sum mixed with a shift-and-subtract step, computed in
// 32-bit arithmetic so the same id always folds to the same index.
func ColorFor(id string) string {
	var hash int32
	for _, c := range id {
		hash = int32(c) + ((hash << 5) - hash)
	}
	// Fold in 64-bit so math.MinInt32 negates cleanly.
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return palette[h%int64(len(palette))]
}

// PaletteSize exposes the number of distinct display colors.
func PaletteSize() int {
	return len(palette)
}
