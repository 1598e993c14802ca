package packagesystem

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kentos-io/bootward/internal/utils"
	"github.com/kentos-io/bootward/pkg/model"
)

// QueryFiles maps one or more file paths under sysroot to a single
// combined version/build-time record by querying the rpm database. The
// version is the sorted set of owning package NEVRAs; the timestamp is
// the newest build time among them.
func QueryFiles(run utils.Runner, sysroot string, paths ...string) (*model.ContentMetadata, error) {
	if len(paths) == 0 {
		return nil, errors.New("no paths to query")
	}

	args := []string{"-q", "--queryformat", "%{nevra},%{buildtime}\n"}
	if sysroot != "" && sysroot != "/" {
		args = append(args, "--root", sysroot)
	}
	args = append(args, "-f")
	args = append(args, paths...)

	out, err := run.Output("rpm", args...)
	if err != nil {
		return nil, fmt.Errorf("querying package database: %w", err)
	}
	return parseQueryOutput(out)
}

func parseQueryOutput(out string) (*model.ContentMetadata, error) {
	var names []string
	seen := map[string]bool{}
	var latest time.Time

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed package query line %q", line)
		}
		nevra := line[:idx]
		ts, err := strconv.ParseInt(line[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed build time in %q: %v", line, err)
		}
		if !seen[nevra] {
			seen[nevra] = true
			names = append(names, nevra)
		}
		if t := time.Unix(ts, 0).UTC(); t.After(latest) {
			latest = t
		}
	}
	if len(names) == 0 {
		return nil, errors.New("package query returned no packages")
	}

	sort.Strings(names)
	return &model.ContentMetadata{Version: strings.Join(names, ","), Timestamp: latest}, nil
}
