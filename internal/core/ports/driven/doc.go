// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ProtocolClient: Speaks RETS or RESO to one server
//   - ProtocolClientFactory: Creates protocol clients from connections
//   - ResponseParser: Decodes one response format into a ResultSet
//   - ParserRegistry: Selects the appropriate parser
//
// # Optional Interfaces
//
// Only needed by the profile surfaces (CLI, MCP):
//
//   - SecretStore: Passwords, client secrets and tokens
//   - ProfileStore: Saved connection profiles (no secrets)
//   - ConfigStore: Application defaults
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or parser package
package driven
