// Package device is the startup collaborator: it builds the broker client,
// the completion session, the input sampler and the relay from configuration,
// binds the shared handles exactly once, and runs everything until shutdown.
package device
