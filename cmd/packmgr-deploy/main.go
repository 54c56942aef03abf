package main

import "packmgr-deploy/internal/cli"

func main() {
	cli.Execute()
}
