// Package buildinfo holds the version stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/matzehuels/pglocktrace/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/pglocktrace/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/pglocktrace/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// The version also names the catalog connections in pg_stat_activity, so a
// tracer attached to the same cluster can tell them apart from the traced
// workload.
package buildinfo

import "fmt"

// Link-time values.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// maxApplicationName is NAMEDATALEN-1; PostgreSQL truncates longer names.
const maxApplicationName = 63

// ApplicationName is the application_name of catalog connections, for
// example "pglocktrace/v0.3.0".
func ApplicationName() string {
	name := "pglocktrace/" + Version
	if len(name) > maxApplicationName {
		name = name[:maxApplicationName]
	}
	return name
}

// Template is the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}
