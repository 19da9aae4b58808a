package version

import "fmt"

// Version, GitCommit and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/jmeubank/switchtool/pkg/version.Version=v1.0.0 \
//	  -X github.com/jmeubank/switchtool/pkg/version.GitCommit=abc1234 \
//	  -X github.com/jmeubank/switchtool/pkg/version.BuildDate=2026-07-30"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info formats the build metadata for the "version" subcommand's output.
func Info() string {
	return fmt.Sprintf("switchtool-agent %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
