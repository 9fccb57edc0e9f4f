package styles

// Nerd Font icons (requires a Nerd Font to display correctly)
const (
	IconCheck   = "\uf00c" // check
	IconX       = "\uf00d" // x
	IconWarning = "\uf071" // warning
	IconInfo    = "\uf05a" // info
	IconTrash   = "\uf1f8" // trash
	IconFolder  = "\uf07b" // folder
	IconConfig  = "\ue615" // config
	IconImage   = "\uf1c5" // image file
	IconGlobe   = "\uf0ac" // origin
	IconServer  = "\uf233" // server
)
