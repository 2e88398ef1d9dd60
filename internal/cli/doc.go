// Package cli implements the skillos command-line interface.
//
// Each Cobra command parses its flags and delegates to a xxxCommand
// function that takes its dependencies (config path, output and input
// streams) explicitly, so commands can be exercised without a terminal.
//
// # Command Structure
//
//	skillos init      - Create .skillos.yaml
//	skillos login     - Phone + one-time code sign-in
//	skillos logout    - End the session
//	skillos monitor   - Live dashboard (Bubble Tea, alt screen)
//	skillos status    - One-shot summary of recent readings
//	skillos whoami    - Show the signed-in account
//	skillos version   - Build information
//
// # Session Handling
//
// loadApp reads config, builds the gateway client on top of the encrypted
// session file and restores the saved session. Commands that need a
// session fail with an AUTH error pointing at `skillos login`.
//
// # Output
//
// Errors print as the message, cause and suggestion of the structured
// error. status and whoami accept --json and then write a JSONEnvelope
// on both success and failure.
package cli
