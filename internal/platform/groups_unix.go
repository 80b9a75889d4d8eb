//go:build unix

// Copyright (c) 2026 Keymaster Team
// Keymaster Remote - remote administration system
// This source code is licensed under the MIT license found in the LICENSE file.

package platform

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

var groupFile = "/etc/group"

// listGroups reads the group names from the local group database.
func listGroups() ([]string, error) {
	f, err := os.Open(groupFile)
	if err != nil {
		return nil, fmt.Errorf("open group database: %w", err)
	}
	defer func() { _ = f.Close() }()

	seen := make(map[string]bool)
	var groups []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, _, _ := strings.Cut(line, ":")
		if name != "" && !seen[name] {
			seen[name] = true
			groups = append(groups, name)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read group database: %w", err)
	}
	sort.Strings(groups)
	return groups, nil
}
