// Package project locates a cdd project and loads its documents.
//
// A project is a directory containing .cdd/state.yaml. Open resolves the
// documents once per invocation into a Project, which is then passed
// explicitly to hooks, the dispatcher and status renderers.
package project

import (
	"path/filepath"

	"github.com/papapumpkin/cdd/internal/config"
	"github.com/papapumpkin/cdd/internal/debuglog"
	"github.com/papapumpkin/cdd/internal/simpleyaml"
)

// Project is the resolved context for one invocation.
type Project struct {
	// Dir is the project working directory (the parent of Root).
	Dir string
	// Root is the .cdd directory.
	Root string

	Document *simpleyaml.Map
	State    State
	Config   Config
	Settings config.Settings
	Log      *debuglog.Logger
}

// Open resolves the project under cwd. ok is false when cwd is not a cdd
// project or its state.yaml cannot be read.
func Open(cwd string, settings config.Settings) (*Project, bool) {
	root, ok := FindRoot(cwd)
	if !ok {
		return nil, false
	}

	cfg, cfgErr := DecodeConfig(readOrEmpty(ReadConfig(root)))
	log := debuglog.Open(root, settings.Debug || cfg.Debug)
	if cfgErr != nil {
		log.Source("config").WithError(cfgErr).Warn("config partially decoded")
	}

	doc, ok := ReadState(root)
	if !ok {
		log.Source("config").Debug("no state.yaml found")
		log.Close()
		return nil, false
	}

	return &Project{
		Dir:      filepath.Dir(root),
		Root:     root,
		Document: doc,
		State:    StateFromDocument(doc),
		Config:   cfg,
		Settings: settings,
		Log:      log,
	}, true
}

// Name is the configured project name, or the directory name.
func (p *Project) Name() string {
	if p.Config.ProjectName != "" {
		return p.Config.ProjectName
	}
	return filepath.Base(p.Dir)
}

// Contract reads the contract of the named module.
func (p *Project) Contract(module string) (*simpleyaml.Map, bool) {
	return ReadContract(p.Root, module)
}

// Close releases the debug log.
func (p *Project) Close() {
	if p == nil {
		return
	}
	p.Log.Close()
}

func readOrEmpty(doc *simpleyaml.Map, ok bool) *simpleyaml.Map {
	if !ok {
		return nil
	}
	return doc
}
