// Package login implements the interactive phone → code sign-in form.
//
// The form is a Bubble Tea model over an auth.Machine. The machine owns
// every rule (sanitizing, validation, cooldown, error surfacing); the form
// only collects input, shows a spinner while a request is in flight, and
// drives the resend countdown with tea.Tick.
//
// # Keys
//
//	enter   - Submit the phone number or code
//	ctrl+r  - Resend the code once the countdown reaches zero
//	ctrl+n  - Change number (back to phone entry)
//	esc     - Cancel
package login
