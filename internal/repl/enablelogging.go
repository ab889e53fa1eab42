package repl

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// loggingSettings are the postgresql.conf keys enable-logging turns on.
var loggingSettings = map[string]string{
	"logging_collector": "on",
	"log_directory":     "'log'",
	"log_filename":      "'postgresql-%Y-%m-%d_%H%M%S.log'",
}

// cmdEnableLogging turns on logging_collector for an instance by
// rewriting its postgresql.conf.
func (e *Executor) cmdEnableLogging(args []string) string {
	if len(args) == 0 {
		return "Usage: enable-logging <id|path>"
	}

	idx, err := strconv.Atoi(args[0])
	if err != nil {
		if i, ok := e.findInstanceByPathSubstring(args[0]); ok {
			idx, err = i, nil
		}
	}
	if err != nil || !e.State.SelectInstance(idx) {
		return fmt.Sprintf("No instance with index %s. Run 'list' to see available instances.", args[0])
	}
	inst := e.State.CurrentInstance()

	if inst.LoggingEnabled {
		return "Logging is already enabled for this instance."
	}

	configPath := filepath.Join(inst.DataDir, "postgresql.conf")
	content, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Sprintf("Cannot read %s: %s", configPath, err)
	}

	lines := strings.Split(string(content), "\n")
	modified := make(map[string]bool)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for key, value := range loggingSettings {
			if strings.HasPrefix(trimmed, "#"+key) || strings.HasPrefix(trimmed, key) {
				lines[i] = key + " = " + value
				modified[key] = true
				break
			}
		}
	}

	var toAppend []string
	for key, value := range loggingSettings {
		if !modified[key] {
			toAppend = append(toAppend, key+" = "+value)
		}
	}
	if len(toAppend) > 0 {
		lines = append(lines, "", "# Added by pgtail")
		lines = append(lines, toAppend...)
	}

	if err := os.WriteFile(configPath, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return fmt.Sprintf("Cannot write %s: %s", configPath, err)
	}

	inst.LoggingEnabled = true

	if inst.Running {
		return fmt.Sprintf("Logging enabled. Restart PostgreSQL for changes to take effect:\n  pg_ctl restart -D %s", inst.DataDir)
	}
	return "Logging enabled in postgresql.conf. Start PostgreSQL to begin logging."
}
