// Package branding centralizes product naming so services and clients
// render a consistent identity.
package branding

// AppName is the public product name.
const AppName = "Gantry"

// Version is the scaffold release version reported by servers and the
// health endpoint.
const Version = "0.1.0"
