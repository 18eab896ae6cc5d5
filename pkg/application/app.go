// Copyright (C) 2022, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.
package application

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/luxfi/hydra/pkg/config"
	"github.com/luxfi/hydra/pkg/constants"
	"github.com/luxfi/hydra/pkg/prompts"
	"github.com/luxfi/hydra/pkg/registry"
	"go.uber.org/zap"
)

// Hydra carries everything a command needs. Commands receive it through
// NewCmd instead of reaching for package state.
type Hydra struct {
	Log     *zap.Logger
	baseDir string
	workdir string
	Conf    *config.Config
	Prompt  prompts.Prompter
	hooks   []registry.Hook
	store   *registry.Store
	Version string
}

func New() *Hydra {
	return &Hydra{}
}

func (app *Hydra) Setup(baseDir string, log *zap.Logger, conf *config.Config, prompt prompts.Prompter) error {
	app.baseDir = baseDir
	app.Log = log
	app.Conf = conf
	app.Prompt = prompt
	workdir, err := conf.WorkdirPath()
	if err != nil {
		return fmt.Errorf("failed resolving workdir: %w", err)
	}
	app.workdir = workdir
	return nil
}

// AddRegistryHook registers a hook run after every registry change. Hooks
// must be added before the first call to Registry.
func (app *Hydra) AddRegistryHook(h registry.Hook) {
	app.hooks = append(app.hooks, h)
}

func (app *Hydra) GetBaseDir() string {
	return app.baseDir
}

func (app *Hydra) GetWorkdir() string {
	return app.workdir
}

func (app *Hydra) GetLogDir() string {
	return filepath.Join(app.baseDir, constants.LogDir)
}

func (app *Hydra) GetRegistryPath() string {
	return filepath.Join(app.workdir, constants.RegistryFileName)
}

func (app *Hydra) GetJournalPath() string {
	return filepath.Join(app.baseDir, constants.JournalFileName)
}

// GetNetworkDir is where operator-side artifacts for a network are written.
func (app *Hydra) GetNetworkDir(name string) string {
	return filepath.Join(app.workdir, constants.NetworksDirName, name)
}

// GetNodeDir is the working directory of a node on the machine running it.
func (app *Hydra) GetNodeDir(name string) string {
	return filepath.Join(app.workdir, name)
}

func (app *Hydra) GetDefaultNetworkPath() string {
	file := app.Conf.Hydra.DefaultNetworkFile
	if file == "" {
		file = constants.DefaultNetworkFileName
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(app.workdir, file)
}

// Registry returns the registry store of the working directory. All callers
// share one store so writes stay serialized within the process.
func (app *Hydra) Registry() *registry.Store {
	if app.store == nil {
		app.store = registry.New(app.GetRegistryPath(), app.Log, app.hooks...)
	}
	return app.store
}

// ReadDefaultNetwork returns the saved default network name, or "" if none.
func (app *Hydra) ReadDefaultNetwork() (string, error) {
	b, err := os.ReadFile(app.GetDefaultNetworkPath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (app *Hydra) WriteDefaultNetwork(name string) error {
	path := app.GetDefaultNetworkPath()
	if err := os.MkdirAll(filepath.Dir(path), constants.DefaultPerms755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(name+"\n"), constants.WriteReadReadPerms)
}

// ResolveNetworkName picks the network to operate on: explicit value first,
// then HYDRA_NETWORK, then the default-network file.
func (app *Hydra) ResolveNetworkName(explicit string) (string, error) {
	name := explicit
	if name == "" {
		name = os.Getenv(constants.EnvNetworkName)
	}
	if name == "" {
		saved, err := app.ReadDefaultNetwork()
		if err != nil {
			return "", fmt.Errorf("failed reading default network file: %w", err)
		}
		name = saved
	}
	if name == "" {
		return "", constants.ErrNoNetworkName
	}
	if err := prompts.ValidateNetworkName(name); err != nil {
		return "", fmt.Errorf("%q: %w", name, err)
	}
	return name, nil
}
