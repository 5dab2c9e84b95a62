package app

import (
	apperrors "github.com/gantrylabs/gantry/internal/platform/errors"
	"github.com/gantrylabs/gantry/internal/webserver"
)

// WebProvider owns the single web application instance of the process.
type WebProvider struct {
	build func() (*webserver.App, error)
	slot  slot[*webserver.App]
}

// NewWebProvider returns a provider that constructs instances with build.
func NewWebProvider(build func() (*webserver.App, error)) *WebProvider {
	return &WebProvider{build: build}
}

// Create builds the web application and stores it. It fails when an
// instance already exists; the stored instance is left untouched.
func (p *WebProvider) Create() (*webserver.App, error) {
	app, err := p.slot.create(p.construct)
	if err == errSlotOccupied {
		return nil, apperrors.New(apperrors.CodeAlreadyCreated, "web server already created")
	}
	return app, err
}

// Get returns the stored web application.
func (p *WebProvider) Get() (*webserver.App, error) {
	app, err := p.slot.get()
	if err == errSlotEmpty {
		return nil, apperrors.New(apperrors.CodeNotCreated, "web server must be created first")
	}
	return app, err
}

// Ensure returns the stored web application, creating one when none
// exists.
func (p *WebProvider) Ensure() (*webserver.App, error) {
	return p.slot.ensure(p.construct)
}

// Reset drops the stored instance. Resetting an empty provider is a no-op.
func (p *WebProvider) Reset() {
	p.slot.clear()
}

func (p *WebProvider) construct() (*webserver.App, error) {
	if p.build == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "web server builder is not configured")
	}
	return p.build()
}
