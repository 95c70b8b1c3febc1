package main

import "github.com/jrsteele09/dashboard-session/cmd/dashboard/cmd"

func main() {
	cmd.Execute()
}
