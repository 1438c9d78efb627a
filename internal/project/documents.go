package project

import (
	"os"
	"path/filepath"

	"github.com/papapumpkin/cdd/internal/simpleyaml"
)

// Layout of the .cdd directory.
const (
	DirName      = ".cdd"
	StateFile    = "state.yaml"
	ConfigFile   = "config.yaml"
	ContractsDir = "contracts"
)

// FindRoot returns the .cdd directory under cwd. A directory only counts as
// a project when .cdd/state.yaml exists.
func FindRoot(cwd string) (string, bool) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		cwd = wd
	}
	root := filepath.Join(cwd, DirName)
	info, err := os.Stat(filepath.Join(root, StateFile))
	if err != nil || info.IsDir() {
		return "", false
	}
	return root, true
}

// ReadDocument reads and parses a constrained-YAML file. ok is false when
// the file is missing or unreadable.
func ReadDocument(path string) (*simpleyaml.Map, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return simpleyaml.Parse(string(data)), true
}

// ReadState reads <root>/state.yaml.
func ReadState(root string) (*simpleyaml.Map, bool) {
	return ReadDocument(filepath.Join(root, StateFile))
}

// ReadConfig reads <root>/config.yaml.
func ReadConfig(root string) (*simpleyaml.Map, bool) {
	return ReadDocument(filepath.Join(root, ConfigFile))
}

// ReadContract reads the module contract <root>/contracts/<name>.yaml.
func ReadContract(root, name string) (*simpleyaml.Map, bool) {
	if name == "" || filepath.Base(name) != name {
		return nil, false
	}
	return ReadDocument(filepath.Join(root, ContractsDir, name+".yaml"))
}
