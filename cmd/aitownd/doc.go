// Command aitownd runs the AiTown simulation core. It standardizes the
// teacher's mode-dispatch (the Tesla-road-trip server's "server" vs
// "stdio-mcp" flag.Args() switch) into urfave/cli/v3 subcommands built
// by internal/cliapp:
//
//	serve         run the HTTP/WebSocket/MCP server and drive the engine loop
//	kick          provision an ephemeral world from a map and kick its engine once
//	tick          provision an ephemeral world from a map and force one engine step
//	validate-map  check a map document's grid consistency and walkability
//
// kick and tick are operational/debugging commands: internal/store's
// in-memory collections don't survive process exit (see DESIGN.md), so
// each provisions a throwaway world from the requested map rather than
// attaching to a long-running serve process's state.
package main
