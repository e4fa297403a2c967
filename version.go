package ddmm

// Version and BuildDate identify the build; BuildDate is stamped by the
// release linker flags.
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
)
