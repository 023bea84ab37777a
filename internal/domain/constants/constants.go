// Package constants defines configuration values shared across layers.
package constants

// Deployment environments.
const (
	EnvDevelop    = "develop"
	EnvStaging    = "staging"
	EnvProduction = "production"
)

// Pub/Sub providers selectable through pubsub.provider.
const (
	PubSubProviderGoogle = "google"
	PubSubProviderLocal  = "local"
	PubSubProviderNone   = "none"
)

// Pub/Sub message attribute keys.
const (
	AttributeEventType = "event_type"
	AttributeRequestID = "request_id"
)
