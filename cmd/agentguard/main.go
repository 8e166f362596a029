package main

import "github.com/agentguard/agentguard-go/internal/cli"

func main() {
	cli.Execute()
}
