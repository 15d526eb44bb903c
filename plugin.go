package changetracking

import (
	"context"

	"gorm.io/gorm"
)

const pluginName = "changetracking"

// Plugin makes a Tracker available to every session of a GORM connection.
type Plugin struct {
	Config Config

	tracker *Tracker
}

// Name returns the name of the plugin.
func (p *Plugin) Name() string {
	return pluginName
}

// Initialize binds the plugin to db.
func (p *Plugin) Initialize(db *gorm.DB) error {
	p.tracker = New(db, p.Config)
	if !p.tracker.IsCtCompatible() {
		db.Logger.Warn(
			context.Background(),
			"Provider %q does not support change tracking, every operation will be rejected",
			p.tracker.Provider(),
		)
	}
	return nil
}

// From returns the Tracker of the plugin registered on db, running on db itself
// so that sessions and transactions are honored.
func From(db *gorm.DB) (*Tracker, error) {
	registered, ok := db.Config.Plugins[pluginName]
	if !ok {
		return nil, ConfigError.New("plugin %s is not registered", pluginName)
	}
	p, ok := registered.(*Plugin)
	if !ok || p.tracker == nil {
		return nil, ConfigError.New("plugin %s is not initialized", pluginName)
	}
	return p.tracker.WithDB(db), nil
}
