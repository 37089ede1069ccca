package main

import "github.com/juggyai/juggy/internal/cmd"

func main() {
	cmd.Execute()
}
