package buildinfo

import (
	"fmt"
	"strconv"
	"strings"
)

const ToolName = "artipub"

var (
	Version = "1.4.0"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("%s %s (commit=%s, date=%s)", ToolName, Version, Commit, Date)
}

// NextMajor returns the next major release after Version, e.g. "2.0" for "1.4.0".
// Unparseable versions such as "dev" yield "the next major version".
func NextMajor() string {
	major, _, _ := strings.Cut(strings.TrimPrefix(Version, "v"), ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return "the next major version"
	}
	return fmt.Sprintf("%d.0", n+1)
}
