package version

// Current and Commit are set at build time with -ldflags -X.
var (
	Current = "dev"
	Commit  = ""
)

const AppName = "graphstep"

// String is the version shown by --version and the canvas header.
func String() string {
	if Commit == "" {
		return Current
	}
	if len(Commit) > 7 {
		return Current + "+" + Commit[:7]
	}
	return Current + "+" + Commit
}
