package main

import "github.com/xaenox/outreach-router/internal/cmd"

func main() {
	cmd.Execute()
}
