package main

import "github.com/selfgate-project/selfgate/internal/cli"

func main() {
	cli.Execute()
}
