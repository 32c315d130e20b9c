package main

import "github.com/racedash/rsc-input-service-go/cmd"

func main() {
	cmd.Execute()
}
