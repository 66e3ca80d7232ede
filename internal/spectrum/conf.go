// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// buildConfig merges the user's analyzer config with the raw-output override
// block. The user's [output] section and any bars setting are stripped first
// so the override is the only writer configuration the analyzer sees.
func buildConfig(userConfig string, bars int) string {
	var b strings.Builder

	inOutput := false
	for _, line := range strings.Split(userConfig, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inOutput = trimmed == "[output]"
		}
		if inOutput {
			continue
		}
		if strings.HasPrefix(trimmed, "bars") {
			rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "bars"))
			if strings.HasPrefix(rest, "=") {
				continue
			}
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\n[general]\nbars = %d\n", bars)
	b.WriteString("\n[output]\n")
	b.WriteString("method = raw\n")
	b.WriteString("raw_target = /dev/stdout\n")
	b.WriteString("data_format = binary\n")
	b.WriteString("bit_format = 8bit\n")
	b.WriteString("channels = mono\n")
	return b.String()
}

// writeConfig materializes the merged config in dir, named per-process so
// concurrent instances never clobber each other. The user config being
// missing is not an error; the override block alone is a valid config.
func writeConfig(dir, userConfigPath string, bars int) (string, error) {
	user := ""
	if data, err := os.ReadFile(userConfigPath); err == nil {
		user = string(data)
	}

	path := filepath.Join(dir, fmt.Sprintf("bard_cava_%d.conf", os.Getpid()))
	if err := os.WriteFile(path, []byte(buildConfig(user, bars)), 0o644); err != nil {
		return "", fmt.Errorf("spectrum: write config: %w", err)
	}
	return path, nil
}
