// Package cli provides the interactive Clarifio command-line client.
//
// It wires configuration, the local metadata store, the backend API client,
// and an interactive REPL. Typical flow: resolve an identity (restored or
// anonymous), navigate programs, courses, and note sessions, edit notes
// (autosaved in the background), and clarify terms.
//
// Key features:
//   - Sign in / sign up / link credential / sign out
//   - Programs, courses, and note session management
//   - Note editing with debounced autosave
//   - Term capture and AI clarification (one per guest device)
//   - Upgrade to paid via checkout + verify
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
