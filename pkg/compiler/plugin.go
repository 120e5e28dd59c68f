// Copyright 2025 Certen Protocol
//
// Dynamic plugin loader: lets a compiled shared-library plugin supply an
// alternative compile function. Safety gate before load rejects path
// traversal and unexpected extensions; a loaded plugin is validated once
// with an empty input before it's made available.

package compiler

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/certen/offchain-channel/pkg/corerr"
)

// Handle identifies a loaded plugin.
type Handle int64

// Plugin is the contract a dynamically loaded compiler backend exposes.
type Plugin interface {
	Name() string
	Version() string
	Compile(bytecode []byte, cfg PipelineConfig) ([]byte, error)
}

type loadedPlugin struct {
	plugin Plugin
	path   string
}

// PluginManager tracks loaded plugins by handle.
type PluginManager struct {
	mu         sync.RWMutex
	plugins    map[Handle]loadedPlugin
	nextHandle Handle
}

// NewPluginManager returns an empty PluginManager.
func NewPluginManager() *PluginManager {
	return &PluginManager{plugins: make(map[Handle]loadedPlugin), nextHandle: 1}
}

// sharedLibSuffixes lists the per-platform suffix the safety gate accepts.
var sharedLibSuffixes = []string{".so", ".dylib", ".dll"}

// isSafePluginPath rejects path traversal and any extension that isn't a
// recognized shared-library suffix.
func isSafePluginPath(path string) bool {
	if strings.Contains(path, "..") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, suf := range sharedLibSuffixes {
		if ext == suf {
			return true
		}
	}
	return false
}

// Load registers a plugin already constructed by the caller (Go's plugin
// package resolves the shared object and its exported symbols; the
// manager's job is the safety gate, handle bookkeeping, and validation —
// same division of labor as the loader the pipeline's plugin support is
// modeled on). Validation calls p.Compile once with empty input and
// accepts either success or a controlled failure.
func (m *PluginManager) Load(path string, p Plugin) (Handle, error) {
	if !isSafePluginPath(path) {
		return 0, corerr.New(corerr.InvalidRequest, "compiler.PluginManager.Load", fmt.Sprintf("unsafe plugin path: %s", path))
	}
	if p.Name() == "" {
		return 0, corerr.New(corerr.InvalidRequest, "compiler.PluginManager.Load", "plugin name cannot be empty")
	}
	if p.Version() == "" {
		return 0, corerr.New(corerr.InvalidRequest, "compiler.PluginManager.Load", "plugin version cannot be empty")
	}

	// Validation tolerates a compile failure on empty input — a plugin may
	// legitimately require non-empty bytecode — but a panic or hang would
	// still surface to the caller.
	_, _ = p.Compile(nil, PipelineConfig{})

	m.mu.Lock()
	defer m.mu.Unlock()
	handle := m.nextHandle
	m.nextHandle++
	m.plugins[handle] = loadedPlugin{plugin: p, path: path}
	return handle, nil
}

// Unload removes a loaded plugin.
func (m *PluginManager) Unload(handle Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plugins[handle]; !ok {
		return corerr.New(corerr.InvalidRequest, "compiler.PluginManager.Unload", "plugin handle not found")
	}
	delete(m.plugins, handle)
	return nil
}

// Get returns the plugin registered under handle, if any.
func (m *PluginManager) Get(handle Handle) (Plugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lp, ok := m.plugins[handle]
	if !ok {
		return nil, false
	}
	return lp.plugin, true
}

// List reports every loaded plugin's handle, path, name, and version.
func (m *PluginManager) List() []struct {
	Handle  Handle
	Path    string
	Name    string
	Version string
} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]struct {
		Handle  Handle
		Path    string
		Name    string
		Version string
	}, 0, len(m.plugins))
	for h, lp := range m.plugins {
		out = append(out, struct {
			Handle  Handle
			Path    string
			Name    string
			Version string
		}{Handle: h, Path: lp.path, Name: lp.plugin.Name(), Version: lp.plugin.Version()})
	}
	return out
}
