package config

import (
	"path"
	"strings"
)

// ScriptPath maps a script identifier to the forge script target. Bare names
// follow the Foundry convention script/<Name>.s.sol; anything naming a .sol
// file or a path:Contract target is used as given.
func ScriptPath(script string) string {
	script = strings.TrimSpace(script)
	if strings.Contains(script, ".sol") || strings.Contains(script, ":") {
		return script
	}
	return "script/" + script + ".s.sol"
}

// ScriptFile returns the file name forge uses for the broadcast directory.
func ScriptFile(scriptPath string) string {
	file, _, _ := strings.Cut(scriptPath, ":")
	return path.Base(file)
}
