package main

import "github.com/ArcadeAI/mcp-server-auth/cmd/mcpauth-demo/cmd"

func main() {
	cmd.Execute()
}
