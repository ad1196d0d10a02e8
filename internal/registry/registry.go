package registry

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/vk/coingraph/internal/config"
)

// Module is the interface that all pluggable agent modules must implement to
// be registered with an application instance.
type Module interface {
	Register(r *Registry)
}

// RegisteredAgent holds the compiled Go parts of an agent type: its handler
// function, its typed input and deps constructors, and the declared inputs
// and outputs that the HCL front end validates against.
type RegisteredAgent struct {
	Description string
	NewInput    func() any
	InputType   reflect.Type
	NewDeps     func() any
	Inputs      map[string]*config.InputDefinition
	Outputs     map[string]*config.OutputDefinition
	Fn          any
}

// RegisteredAsset holds the Go functions for a stateful asset's lifecycle.
type RegisteredAsset struct {
	Description string
	NewInput    func() any
	InputType   reflect.Type
	Inputs      map[string]*config.InputDefinition
	CreateFn    any
	DestroyFn   any
}

// Registry holds all registered agent and asset types for a single
// application instance.
type Registry struct {
	Agents map[string]*RegisteredAgent
	Assets map[string]*RegisteredAsset
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		Agents: make(map[string]*RegisteredAgent),
		Assets: make(map[string]*RegisteredAsset),
	}
}

// RegisterAgent registers a Go handler for an agent type. Registering the
// same type twice is a programmer error and panics.
func (r *Registry) RegisterAgent(agentType string, agent *RegisteredAgent) {
	if _, exists := r.Agents[agentType]; exists {
		panic(fmt.Sprintf("agent type '%s' already registered", agentType))
	}
	slog.Debug("Registering agent type.", "type", agentType)
	r.Agents[agentType] = agent
}

// RegisterAsset registers the lifecycle handlers for an asset type.
func (r *Registry) RegisterAsset(assetType string, asset *RegisteredAsset) {
	if _, exists := r.Assets[assetType]; exists {
		panic(fmt.Sprintf("asset type '%s' already registered", assetType))
	}
	slog.Debug("Registering asset type.", "type", assetType)
	r.Assets[assetType] = asset
}
