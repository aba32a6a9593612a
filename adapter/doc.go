// Package adapter defines the LanguageModel interface that provider adapters implement,
// plus helpers shared between them: sentinel errors, UnsupportedContentError,
// TextFromParts and model-config extraction. Implementations live in provider-specific
// subpackages (e.g. adapter/helicone).
package adapter
