// Package helicone implements adapter.LanguageModel on top of the Helicone AI gateway,
// which exposes many vendors behind one OpenAI-compatible chat-completions endpoint.
//
// A Provider holds the connection settings and default metadata:
//
//	p := helicone.New(
//		helicone.WithAPIKey(os.Getenv("HELICONE_API_KEY")),
//		helicone.WithMetadata(helicone.Metadata{SessionID: "s-1", UserID: "u-42"}),
//	)
//	model := p.LanguageModel("gpt-4o-mini")
//
// Per-call metadata, prompt-template mode and extra body fields travel in
// aisdk.CallOptions.ProviderOptions[helicone.ProviderName] as a CallOptions value.
// Metadata becomes Helicone-* request headers; fallbacks are sent as a
// comma-separated model list.
//
// Stream returns a pull iterator; the adapter starts no goroutines and never
// retries. A cancelled context is reported as ctx.Err() itself.
package helicone
