package main

import "github.com/JSainsburyPLC/danielchurm/go-httpclient-adapter/internal/cli"

var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
