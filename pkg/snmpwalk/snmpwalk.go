// Package snmpwalk shells out to net-snmp's snmpbulkwalk, the one
// collaborator the agent never reimplements in-process, and turns its line
// output into (index, value) pairs.
package snmpwalk

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
)

// Binary is the snmpbulkwalk executable name, overridable so a deployment
// can point at a non-PATH install.
var Binary = "snmpbulkwalk"

var lineRE = regexp.MustCompile(`^.*\.([0-9]+) = (.*)$`)

// Entry is one result row: Index is the trailing OID component, Value is
// the rest of the line verbatim (still SNMPUnSTRING-encoded where STRING
// values are involved).
type Entry struct {
	Index string
	Value string
}

// Walk runs snmpbulkwalk against oid and returns every matching row, in the
// order the tool emitted them. A line that does not match the "oid.N =
// value" shape is treated as potential diagnostic output: the first such
// non-empty line is remembered, and surfaces as the returned error if the
// subprocess exits non-zero.
func Walk(version int, community, ip, oid string) ([]Entry, error) {
	cmd := exec.Command(Binary,
		"-v", fmt.Sprintf("%dc", version),
		"-c", community,
		ip,
		oid,
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to execute '%s': %w", Binary, err)
	}
	cmd.Stderr = cmd.Stdout // merged, matching the original's "2>&1"

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to execute '%s': %w", Binary, err)
	}

	var entries []Entry
	var firstErrLine string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if m := lineRE.FindStringSubmatch(line); m != nil {
			entries = append(entries, Entry{Index: m[1], Value: m[2]})
			continue
		}
		if line != "" && firstErrLine == "" {
			firstErrLine = line
		}
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		cmd.Wait()
		return nil, fmt.Errorf("reading snmpbulkwalk output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		if firstErrLine != "" {
			return nil, fmt.Errorf("%s", firstErrLine)
		}
		return nil, fmt.Errorf("snmpbulkwalk failed: %w", err)
	}
	return entries, nil
}

// UnSTRING strips the "STRING: " prefix and surrounding quotes snmpbulkwalk
// puts around octet-string values. It preserves the original's exact
// substr(9) offset (one past the 8-character "STRING: " prefix), which
// assumes a quoted value and so also consumes the opening quote as part of
// the same slice; an unquoted STRING value would lose its first character
// here exactly as it did in the original.
func UnSTRING(value string) string {
	if !strings.HasPrefix(value, "STRING: ") {
		return ""
	}
	var ret string
	if len(value) > 9 {
		ret = value[9:]
	}
	if len(ret) > 0 && ret[0] == '"' {
		ret = ret[1:]
	}
	if len(ret) > 0 && ret[len(ret)-1] == '"' {
		ret = ret[:len(ret)-1]
	}
	return ret
}
