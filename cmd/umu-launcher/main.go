package main

import "github.com/openwinecomponents/umu-launcher/cmd/umu-launcher/cmd"

func main() {
	cmd.Execute()
}
